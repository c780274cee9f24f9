package wrapper

import (
	"encoding/json"
	"strconv"
	"strings"
)

var singleQuoteEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
)

// Emit renders a decoded value as a source literal for the family.
// JSON-native languages get the JSON text itself. Hinted languages get
// their own spelling of booleans and null, single-quoted strings, and
// composite values as a quoted JSON string that the wrapper decodes at
// runtime.
func Emit(v any, f Family) string {
	if f != FamilyHinted {
		return emitJSON(v)
	}

	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return quoteSingle(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case float64:
		return emitJSON(val)
	}
	if IsComposite(v) {
		return quoteSingle(emitJSON(v))
	}
	return emitJSON(v)
}

func quoteSingle(s string) string {
	return "'" + singleQuoteEscaper.Replace(s) + "'"
}
