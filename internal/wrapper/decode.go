package wrapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/jjudge-oj/contestjudge/types"
)

var (
	jsonLiteralPattern = regexp.MustCompile(`^[\[{][\s\S]*[\]}]$`)
	integerPattern     = regexp.MustCompile(`^-?\d+$`)
	truePattern        = regexp.MustCompile(`(?i)^(true|1)$`)
	falsePattern       = regexp.MustCompile(`(?i)^(false|0)$`)
)

// TypedArgument is one decoded sample value together with the type tag it
// was decoded against. Value is one of int64, float64, bool, string,
// json.Number, []any, map[string]any or nil.
type TypedArgument struct {
	Type  types.ParamType
	Value any
}

// DecodeError reports sample text that could not be read as JSON. Decoding
// recovers from it by keeping the raw token.
type DecodeError struct {
	Text string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Text, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode turns one sample input string into arguments for the given
// parameters. The fallbacks are applied in a fixed order: empty input uses
// the examples, a lone JSON literal is parsed, then whitespace tokens,
// then comma tokens, then overflow tokens are folded into the last
// parameter. Existing sample data depends on this order.
func Decode(input string, specs []types.ParameterSpec) []TypedArgument {
	s := strings.TrimSpace(input)
	if s == "" {
		args := make([]TypedArgument, len(specs))
		for i, spec := range specs {
			args[i] = DecodeToken(spec.Example, spec.Type)
		}
		return args
	}

	if jsonLiteralPattern.MatchString(s) {
		if parsed, err := parseJSON(s); err == nil {
			return alignParsed(parsed, specs)
		}
	}

	tokens := strings.Fields(s)
	if len(tokens) == 1 && strings.Contains(s, ",") {
		tokens = splitCommas(s)
	}

	if n := len(specs); n > 0 && len(tokens) > n {
		last := strings.Join(tokens[n-1:], " ")
		tokens = append(tokens[:n-1:n-1], last)
	}

	if len(specs) == 0 {
		args := make([]TypedArgument, len(tokens))
		for i, tok := range tokens {
			args[i] = TypedArgument{Type: types.ParamUnknown, Value: looseNumber(tok)}
		}
		return args
	}

	args := make([]TypedArgument, len(specs))
	for i, spec := range specs {
		tok := spec.Example
		if i < len(tokens) {
			tok = tokens[i]
		}
		args[i] = DecodeToken(tok, spec.Type)
	}
	return args
}

// alignParsed maps a parsed JSON literal onto the parameters. An array is
// spread positionally across several parameters; any other value, or any
// value for a single parameter, becomes the first argument as a whole.
func alignParsed(parsed any, specs []types.ParameterSpec) []TypedArgument {
	if arr, ok := parsed.([]any); ok && len(specs) > 1 {
		args := make([]TypedArgument, len(specs))
		for i, spec := range specs {
			if i < len(arr) {
				args[i] = DecodeToken(elementToken(arr[i]), spec.Type)
			} else {
				args[i] = DecodeToken(spec.Example, spec.Type)
			}
		}
		return args
	}

	if len(specs) == 0 {
		return []TypedArgument{{Type: types.ParamUnknown, Value: parsed}}
	}
	args := make([]TypedArgument, len(specs))
	args[0] = TypedArgument{Type: specs[0].Type, Value: parsed}
	for i := 1; i < len(specs); i++ {
		args[i] = DecodeToken(specs[i].Example, specs[i].Type)
	}
	return args
}

func elementToken(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case json.Number:
		return e.String()
	default:
		return emitJSON(e)
	}
}

func splitCommas(s string) []string {
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// DecodeToken coerces a single raw token according to a parameter type.
func DecodeToken(token string, t types.ParamType) TypedArgument {
	return TypedArgument{Type: t, Value: coerce(token, t.Kind())}
}

func coerce(token string, kind types.ParamType) any {
	switch kind {
	case types.ParamInt:
		if integerPattern.MatchString(token) {
			if n, err := strconv.ParseInt(token, 10, 64); err == nil {
				return n
			}
		}
		if f, ok := numberValue(token); ok {
			f = math.Trunc(f)
			if f >= math.MinInt64 && f < math.MaxInt64 {
				return int64(f)
			}
			return f
		}
		return token
	case types.ParamFloat:
		if f, ok := numberValue(token); ok {
			return f
		}
		return token
	case types.ParamBool:
		switch {
		case truePattern.MatchString(token):
			return true
		case falsePattern.MatchString(token):
			return false
		}
		return token != ""
	case types.ParamString:
		return token
	case types.ParamArray:
		trimmed := strings.TrimSpace(token)
		if jsonLiteralPattern.MatchString(trimmed) {
			if parsed, err := parseJSON(trimmed); err == nil {
				return parsed
			}
		}
		fields := strings.Fields(trimmed)
		list := make([]any, len(fields))
		for i, f := range fields {
			list[i] = f
		}
		return list
	default:
		if parsed, err := parseJSON(token); err == nil {
			return parsed
		}
		return token
	}
}

// numberValue parses a token the way a lenient numeric conversion would:
// surrounding whitespace is ignored, blank text reads as zero and unsigned
// 0x, 0o and 0b literals are integers. Non-finite results are rejected.
func numberValue(token string) (float64, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, true
	}
	lower := strings.ToLower(s)
	if base, ok := radixPrefix(strings.TrimLeft(lower, "+-")); ok {
		if lower[0] == '+' || lower[0] == '-' {
			return 0, false
		}
		n, ok := new(big.Int).SetString(lower[2:], base)
		if !ok {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		if math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(s, "_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func radixPrefix(s string) (int, bool) {
	if len(s) < 2 || s[0] != '0' {
		return 0, false
	}
	switch s[1] {
	case 'x':
		return 16, true
	case 'o':
		return 8, true
	case 'b':
		return 2, true
	}
	return 0, false
}

func looseNumber(token string) any {
	if integerPattern.MatchString(token) {
		if n, err := strconv.ParseInt(token, 10, 64); err == nil {
			return n
		}
	}
	if f, ok := numberValue(token); ok {
		return f
	}
	return token
}

// parseJSON decodes exactly one JSON value, keeping numbers as json.Number
// so they are re-emitted with their original spelling.
func parseJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &DecodeError{Text: text, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Text: text, Err: errors.New("trailing data after JSON value")}
	}
	return v, nil
}

// IsComposite reports whether a decoded value is an array or object.
func IsComposite(v any) bool {
	switch v.(type) {
	case []any, map[string]any, []string:
		return true
	}
	return false
}

func emitJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
