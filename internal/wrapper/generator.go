package wrapper

import (
	"strings"

	"github.com/jjudge-oj/contestjudge/types"
)

// Artifact is the runnable program for one sample case together with the
// text to feed on standard input. Artifacts are rebuilt for every attempt.
type Artifact struct {
	Source string `json:"source"`
	Stdin  string `json:"stdin"`
}

type builderFunc func(lang Language, code, sampleInput string, specs []types.ParameterSpec) Artifact

var builders = [familyCount]builderFunc{
	FamilyStdin:  buildStdin,
	FamilyJSON:   buildJSON,
	FamilyHinted: buildHinted,
}

// Build generates the wrapper artifact for running code against one sample
// input. It is a pure function of its arguments.
func Build(lang Language, code, sampleInput string, specs []types.ParameterSpec) Artifact {
	if lang.Family >= familyCount {
		return buildStdin(lang, code, sampleInput, specs)
	}
	return builders[lang.Family](lang, code, sampleInput, specs)
}

func buildStdin(_ Language, code, sampleInput string, _ []types.ParameterSpec) Artifact {
	return Artifact{Source: code, Stdin: sampleInput}
}

func buildJSON(lang Language, code, sampleInput string, specs []types.ParameterSpec) Artifact {
	names, args := bindings(lang.entry(), sampleInput, specs)

	var decls strings.Builder
	for i, arg := range args {
		if i > 0 {
			decls.WriteByte('\n')
		}
		decls.WriteString("const " + names[i] + " = " + Emit(arg.Value, FamilyJSON) + ";")
	}

	var b strings.Builder
	b.WriteString("\n" + code + "\n")
	b.WriteString(decls.String() + "\n")
	b.WriteString(lang.entry() + "(" + strings.Join(names, ", ") + ");\n")
	return Artifact{Source: b.String()}
}

func buildHinted(lang Language, code, sampleInput string, specs []types.ParameterSpec) Artifact {
	names, args := bindings(lang.entry(), sampleInput, specs)

	needJSON := false
	var decls strings.Builder
	for i, arg := range args {
		if i > 0 {
			decls.WriteByte('\n')
		}
		lit := Emit(arg.Value, FamilyHinted)
		if IsComposite(arg.Value) {
			needJSON = true
			lit = "json.loads(" + lit + ")"
		}
		decls.WriteString(names[i] + " = " + lit)
	}

	var b strings.Builder
	b.WriteString("\n")
	if needJSON {
		b.WriteString("import json\n")
	}
	b.WriteString(code + "\n")
	b.WriteString(decls.String() + "\n")
	b.WriteString(lang.entry() + "(" + strings.Join(names, ", ") + ")\n")
	return Artifact{Source: b.String()}
}

// bindings decodes the sample and pairs each argument with an identifier.
func bindings(entry, sampleInput string, specs []types.ParameterSpec) ([]string, []TypedArgument) {
	args := Decode(sampleInput, specs)
	if len(specs) > 0 {
		return ParamNames(specs, entry), args
	}
	return letterNames(len(args)), args
}
