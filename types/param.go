package types

import "strings"

// ParamType is the abstract type tag an admin attaches to a parameter.
// Tags are matched case-insensitively and several aliases are accepted.
type ParamType string

// Canonical parameter type tags.
const (
	ParamInt     ParamType = "int"
	ParamFloat   ParamType = "float"
	ParamString  ParamType = "string"
	ParamBool    ParamType = "bool"
	ParamArray   ParamType = "array"
	ParamUnknown ParamType = ""
)

// Kind folds the aliases of a tag onto its canonical form.
// Unrecognised or absent tags map to ParamUnknown.
func (t ParamType) Kind() ParamType {
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "int", "long", "number":
		return ParamInt
	case "float", "double":
		return ParamFloat
	case "string":
		return ParamString
	case "bool", "boolean":
		return ParamBool
	case "array", "list":
		return ParamArray
	default:
		return ParamUnknown
	}
}

// ParameterSpec describes one argument of the entry point a participant
// implements. It is owned by the question and read-only during judging.
type ParameterSpec struct {
	// Name is the admin-authored parameter name. It is normalized into a
	// valid identifier before it reaches generated source.
	Name string `json:"name"`

	// Type is the abstract type tag used to decode sample tokens.
	Type ParamType `json:"type"`

	// Example is decoded in place of a missing sample token.
	Example string `json:"example"`
}
