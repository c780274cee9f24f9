package wrapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jjudge-oj/contestjudge/types"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		raw  string
		idx  int
		want string
	}{
		{"nums", 0, "nums"},
		{"  first value ", 0, "first_value"},
		{"a--b..c", 0, "a_b_c"},
		{"__x__", 0, "x"},
		{"2nd", 1, "_2nd"},
		{"größe", 0, "größe"},
		{"x²", 0, "x"},
		{"½n", 0, "n"},
		{"a³b", 0, "a_b"},
		{"٣x", 0, "_٣x"},
		{"", 2, "p3"},
		{"   ", 0, "p1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeName(tc.raw, tc.idx), "raw=%q", tc.raw)
	}
}

func TestNormalizeNamePunctuationOnlyFallsBack(t *testing.T) {
	for i, raw := range []string{"!!!", "-", "()[]{}", "@#$%^&*", "..."} {
		got := NormalizeName(raw, i)
		assert.NotEmpty(t, got)
		assert.Equal(t, positionalName(i), got)
	}
}

func TestParamNamesResolvesCollisions(t *testing.T) {
	specs := []types.ParameterSpec{
		{Name: "n"},
		{Name: "n!"},
		{Name: "class"},
		{Name: "p2"},
	}
	assert.Equal(t, []string{"n", "p2", "p3", "p4"}, ParamNames(specs, "solve"))
}

func TestParamNamesAvoidsEntryPoint(t *testing.T) {
	specs := []types.ParameterSpec{{Name: "solve"}, {Name: "k"}}
	assert.Equal(t, []string{"p1", "k"}, ParamNames(specs, "solve"))
	assert.Equal(t, []string{"solve", "k"}, ParamNames(specs, "main"))
}

func TestTypeHint(t *testing.T) {
	assert.Equal(t, "number", TypeHint("long", FamilyJSON))
	assert.Equal(t, "Array", TypeHint("LIST", FamilyJSON))
	assert.Equal(t, "any", TypeHint("matrix", FamilyJSON))
	assert.Equal(t, "float", TypeHint("double", FamilyHinted))
	assert.Equal(t, "str", TypeHint("string", FamilyHinted))
	assert.Equal(t, "Any", TypeHint("", FamilyHinted))
	assert.Equal(t, "any", TypeHint("int", FamilyStdin))
}
