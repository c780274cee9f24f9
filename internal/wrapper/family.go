package wrapper

import (
	"fmt"
	"strings"
)

// Family groups languages by how a wrapper hands arguments to the
// participant's entry point.
type Family uint8

const (
	// FamilyStdin runs the participant's program unchanged and pipes the
	// raw sample input to standard input.
	FamilyStdin Family = iota

	// FamilyJSON binds arguments as source literals written in JSON syntax.
	FamilyJSON

	// FamilyHinted binds scalars as native literals and decodes composite
	// values from embedded JSON at runtime.
	FamilyHinted

	familyCount
)

var familyNames = [familyCount]string{
	FamilyStdin:  "stdin",
	FamilyJSON:   "json",
	FamilyHinted: "hinted",
}

// String returns the catalogue name of the family.
func (f Family) String() string {
	if f >= familyCount {
		return fmt.Sprintf("family(%d)", uint8(f))
	}
	return familyNames[f]
}

// InjectsArguments reports whether wrappers of this family bind arguments
// in source rather than through standard input.
func (f Family) InjectsArguments() bool {
	return f == FamilyJSON || f == FamilyHinted
}

// ParseFamily resolves a catalogue family name.
func ParseFamily(name string) (Family, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range familyNames {
		if n == name {
			return Family(f), nil
		}
	}
	return 0, fmt.Errorf("unknown language family %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(text []byte) error {
	parsed, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
