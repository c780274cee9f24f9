package wrapper

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/contestjudge/types"
)

func values(args []TypedArgument) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

func TestDecodeWhitespaceInts(t *testing.T) {
	specs := []types.ParameterSpec{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}}
	assert.Equal(t, []any{int64(3), int64(4)}, values(Decode("3 4", specs)))
}

func TestDecodeEmptyUsesExamples(t *testing.T) {
	specs := []types.ParameterSpec{
		{Name: "n", Type: "int", Example: "7"},
		{Name: "xs", Type: "array", Example: "[1, 2]"},
		{Name: "s", Type: "string", Example: "hi there"},
		{Name: "ok", Type: "bool", Example: "FALSE"},
	}
	got := Decode("   \n", specs)
	require.Len(t, got, len(specs))
	for i, spec := range specs {
		assert.Equal(t, DecodeToken(spec.Example, spec.Type), got[i])
	}
}

func TestDecodeArrayThenStringOverflow(t *testing.T) {
	specs := []types.ParameterSpec{{Type: "array"}, {Type: "string"}}
	got := values(Decode("[1,2,3] hello", specs))
	assert.Equal(t, []any{
		[]any{json.Number("1"), json.Number("2"), json.Number("3")},
		"hello",
	}, got)
}

func TestDecodeCollapsesOverflowIntoLastParam(t *testing.T) {
	specs := []types.ParameterSpec{{Type: "int"}, {Type: "string"}}
	got := values(Decode("2 the quick  brown fox", specs))
	assert.Equal(t, []any{int64(2), "the quick brown fox"}, got)
}

func TestDecodeCommaSeparatedScalars(t *testing.T) {
	specs := []types.ParameterSpec{{Type: "int"}, {Type: "int"}, {Type: "float"}}
	got := values(Decode("1,2,,3.5", specs))
	assert.Equal(t, []any{int64(1), int64(2), 3.5}, got)
}

func TestDecodeJSONArraySpreadsAcrossParams(t *testing.T) {
	specs := []types.ParameterSpec{
		{Type: "array"},
		{Type: "int"},
		{Type: "string", Example: "fallback"},
	}
	got := values(Decode(`[[1, 2], 5]`, specs))
	assert.Equal(t, []any{
		[]any{json.Number("1"), json.Number("2")},
		int64(5),
		"fallback",
	}, got)
}

func TestDecodeJSONWholeValueForSingleParam(t *testing.T) {
	specs := []types.ParameterSpec{{Name: "grid", Type: "array"}}
	got := Decode(`[[1,0],[0,1]]`, specs)
	require.Len(t, got, 1)
	assert.Equal(t, []any{
		[]any{json.Number("1"), json.Number("0")},
		[]any{json.Number("0"), json.Number("1")},
	}, got[0].Value)
}

func TestDecodeJSONObjectKeepsArity(t *testing.T) {
	specs := []types.ParameterSpec{{Type: ""}, {Type: "int", Example: "9"}}
	got := values(Decode(`{"k": "v"}`, specs))
	assert.Equal(t, []any{map[string]any{"k": "v"}, int64(9)}, got)
}

func TestDecodeInvalidJSONFallsBackToTokens(t *testing.T) {
	specs := []types.ParameterSpec{{Type: "array"}, {Type: "array"}}
	got := values(Decode("[1,2] [3,4]", specs))
	assert.Equal(t, []any{
		[]any{json.Number("1"), json.Number("2")},
		[]any{json.Number("3"), json.Number("4")},
	}, got)
}

func TestDecodeWithoutSpecs(t *testing.T) {
	got := values(Decode("1 2.5 x", nil))
	assert.Equal(t, []any{int64(1), 2.5, "x"}, got)
}

func TestDecodeMissingTokensUseExamples(t *testing.T) {
	specs := []types.ParameterSpec{{Type: "int"}, {Type: "int", Example: "42"}}
	assert.Equal(t, []any{int64(8), int64(42)}, values(Decode("8", specs)))
}

func TestDecodeToken(t *testing.T) {
	cases := []struct {
		token string
		typ   types.ParamType
		want  any
	}{
		{"-12", "int", int64(-12)},
		{"3.9", "int", int64(3)},
		{"-3.9", "number", int64(-3)},
		{"abc", "int", "abc"},
		{"", "int", int64(0)},
		{"0x1A", "int", int64(26)},
		{"0B101", "int", int64(5)},
		{"0o17", "float", 15.0},
		{"-0x1A", "int", "-0x1A"},
		{"0x", "int", "0x"},
		{"0x1p-2", "float", "0x1p-2"},
		{"2.5", "double", 2.5},
		{"x", "float", "x"},
		{"TRUE", "bool", true},
		{"1", "boolean", true},
		{"False", "bool", false},
		{"0", "bool", false},
		{"yes", "bool", true},
		{"", "bool", false},
		{" keep  spaces ", "string", " keep  spaces "},
		{"", "array", []any{}},
		{"a b  c", "list", []any{"a", "b", "c"}},
		{`{"a":1}`, "array", map[string]any{"a": json.Number("1")}},
		{"[1,", "array", []any{"[1,"}},
		{"null", "", nil},
		{"12", "mystery", json.Number("12")},
		{"hello", "", "hello"},
	}
	for _, tc := range cases {
		got := DecodeToken(tc.token, tc.typ)
		assert.Equal(t, tc.want, got.Value, "token=%q type=%q", tc.token, tc.typ)
		assert.Equal(t, tc.typ, got.Type)
	}
}

func TestParseJSONReportsDecodeError(t *testing.T) {
	_, err := parseJSON("[1, 2")
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "[1, 2", decErr.Text)

	_, err = parseJSON("1 2")
	require.Error(t, err)
}
