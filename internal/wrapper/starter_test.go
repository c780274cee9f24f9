package wrapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jjudge-oj/contestjudge/types"
)

func TestStarterJavaScript(t *testing.T) {
	specs := []types.ParameterSpec{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}}
	want := "/**\n" +
		" * @param {number} a\n" +
		" * @param {number} b\n" +
		" * @returns {any}\n" +
		" */\n" +
		"function solve(a, b) {\n" +
		"  // write your logic here\n" +
		"  // Example: return a + b;\n" +
		"}"
	assert.Equal(t, want, Starter(lookup(t, "javascript"), specs))
}

func TestStarterPythonImportsAnyForUntypedParams(t *testing.T) {
	specs := []types.ParameterSpec{{Name: "xs", Type: "array"}, {Name: "meta"}}
	got := Starter(lookup(t, "python"), specs)
	assert.Equal(t, "from typing import Any\n\n"+
		"def solve(xs: list, meta: Any):\n"+
		"    \"\"\"Write your solution here.\"\"\"\n"+
		"    # write your logic here\n", got)
}

func TestStarterStdinLanguageUsesTemplate(t *testing.T) {
	got := Starter(lookup(t, "java"), nil)
	assert.Contains(t, got, "public class Main")
}
