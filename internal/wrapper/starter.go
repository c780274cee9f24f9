package wrapper

import (
	"fmt"
	"strings"

	"github.com/jjudge-oj/contestjudge/types"
)

// Starter returns the code a participant's editor is seeded with.
// Argument-injecting languages get a stub of the entry point with the
// question's parameters; stdin languages use their catalogue template.
func Starter(lang Language, specs []types.ParameterSpec) string {
	params := []string{"input"}
	if len(specs) > 0 {
		params = ParamNames(specs, lang.entry())
	}
	hint := func(i int) types.ParamType {
		if i < len(specs) {
			return specs[i].Type
		}
		return types.ParamUnknown
	}

	switch lang.Family {
	case FamilyJSON:
		var b strings.Builder
		b.WriteString("/**\n")
		for i, p := range params {
			fmt.Fprintf(&b, " * @param {%s} %s\n", TypeHint(hint(i), FamilyJSON), p)
		}
		b.WriteString(" * @returns {any}\n */\n")
		fmt.Fprintf(&b, "function %s(%s) {\n", lang.entry(), strings.Join(params, ", "))
		b.WriteString("  // write your logic here\n")
		example := params[0]
		if len(params) > 1 {
			example += " + " + params[1]
		}
		fmt.Fprintf(&b, "  // Example: return %s;\n}", example)
		return b.String()

	case FamilyHinted:
		needAny := false
		hinted := make([]string, len(params))
		for i, p := range params {
			h := TypeHint(hint(i), FamilyHinted)
			if h == "Any" {
				needAny = true
			}
			hinted[i] = p + ": " + h
		}
		var b strings.Builder
		if needAny {
			b.WriteString("from typing import Any\n\n")
		}
		fmt.Fprintf(&b, "def %s(%s):\n", lang.entry(), strings.Join(hinted, ", "))
		b.WriteString("    \"\"\"Write your solution here.\"\"\"\n")
		b.WriteString("    # write your logic here\n")
		return b.String()
	}

	if lang.Starter != "" {
		return lang.Starter
	}
	return fmt.Sprintf("function %s(%s) {\n  // write your logic here\n}", lang.entry(), strings.Join(params, ", "))
}
