package wrapper

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jjudge-oj/contestjudge/types"
)

var (
	invalidIdentRunes = regexp.MustCompile(`[^\p{L}\p{Nd}_]+`)
	edgeUnderscores   = regexp.MustCompile(`^_+|_+$`)
)

// Words that cannot be bound as variables in at least one argument-injecting
// language. A parameter named like one falls back to its positional name.
var reservedWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		break case catch class const continue debugger default delete do else
		enum export extends finally for function if import in instanceof let new
		return super switch this throw try typeof var void while with yield await
		null true false undefined NaN Infinity arguments eval
		and as assert async def del elif except from global is lambda nonlocal
		not or pass raise None True False json`) {
		reservedWords[w] = struct{}{}
	}
}

// NormalizeName turns an admin-authored parameter name into an identifier.
// Runs of characters outside letters, decimal digits and underscore become one
// underscore, edge underscores are trimmed, a leading digit gets an
// underscore prefix, and an empty result falls back to p<idx+1>.
func NormalizeName(raw string, idx int) string {
	s := strings.TrimSpace(raw)
	s = invalidIdentRunes.ReplaceAllString(s, "_")
	s = edgeUnderscores.ReplaceAllString(s, "")
	if s == "" {
		return positionalName(idx)
	}
	if r, _ := utf8.DecodeRuneInString(s); unicode.IsDigit(r) {
		s = "_" + s
	}
	return s
}

func positionalName(idx int) string {
	return fmt.Sprintf("p%d", idx+1)
}

// ParamNames normalizes every parameter name. Names that collide with an
// earlier parameter, a reserved word or the entry point use their positional
// name.
func ParamNames(specs []types.ParameterSpec, entry string) []string {
	names := make([]string, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		name := NormalizeName(spec.Name, i)
		if _, reserved := reservedWords[name]; reserved || name == entry {
			name = positionalName(i)
		}
		if _, dup := seen[name]; dup {
			name = positionalName(i)
		}
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			name += "_"
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	return names
}

// letterNames returns a, b, c, ... for argument lists without metadata.
func letterNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		if i < 26 {
			names[i] = string(rune('a' + i))
		} else {
			names[i] = fmt.Sprintf("arg%d", i+1)
		}
	}
	return names
}

// TypeHint maps a parameter type onto the hint shown in starter code for
// the given language family.
func TypeHint(t types.ParamType, f Family) string {
	switch f {
	case FamilyJSON:
		switch t.Kind() {
		case types.ParamInt, types.ParamFloat:
			return "number"
		case types.ParamString:
			return "string"
		case types.ParamBool:
			return "boolean"
		case types.ParamArray:
			return "Array"
		}
		return "any"
	case FamilyHinted:
		switch t.Kind() {
		case types.ParamInt:
			return "int"
		case types.ParamFloat:
			return "float"
		case types.ParamString:
			return "str"
		case types.ParamBool:
			return "bool"
		case types.ParamArray:
			return "list"
		}
		return "Any"
	default:
		return "any"
	}
}
