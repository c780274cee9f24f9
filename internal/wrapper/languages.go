package wrapper

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const defaultEntry = "solve"

//go:embed languages.toml
var defaultCatalog []byte

// Language is one entry of the language catalogue.
type Language struct {
	// Name is the identifier clients select the language by.
	Name string `toml:"name" json:"name"`

	// Label is shown to participants.
	Label string `toml:"label" json:"label"`

	// Runtime and Version are the executor's language selector.
	Runtime string `toml:"runtime" json:"runtime"`
	Version string `toml:"version" json:"version"`

	// Family decides how sample arguments reach the program.
	Family Family `toml:"family" json:"family"`

	// Entry is the function wrappers call. Defaults to "solve".
	Entry string `toml:"entry" json:"entry,omitempty"`

	Aliases []string `toml:"aliases" json:"aliases,omitempty"`

	// Starter is a fixed starter template used by stdin languages.
	Starter string `toml:"starter" json:"-"`
}

func (l Language) entry() string {
	if l.Entry == "" {
		return defaultEntry
	}
	return l.Entry
}

// Catalog resolves language names and aliases.
type Catalog struct {
	languages []Language
	byName    map[string]Language
}

type catalogFile struct {
	Languages []Language `toml:"languages"`
}

// LoadCatalog reads a catalogue file, or the built-in catalogue when path
// is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language catalogue: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalogue.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in language catalogue: %v", err))
	}
	return c
}

// ParseCatalog decodes a TOML catalogue.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse language catalogue: %w", err)
	}
	if len(file.Languages) == 0 {
		return nil, errors.New("language catalogue is empty")
	}

	c := &Catalog{byName: make(map[string]Language)}
	for _, lang := range file.Languages {
		lang.Name = strings.ToLower(strings.TrimSpace(lang.Name))
		if lang.Name == "" {
			return nil, errors.New("language without a name")
		}
		if lang.Runtime == "" {
			lang.Runtime = lang.Name
		}
		if lang.Version == "" {
			lang.Version = "*"
		}
		lang.Starter = strings.TrimPrefix(lang.Starter, "\n")
		for _, key := range append([]string{lang.Name}, lang.Aliases...) {
			key = strings.ToLower(strings.TrimSpace(key))
			if _, dup := c.byName[key]; dup {
				return nil, fmt.Errorf("language %q declared twice", key)
			}
			c.byName[key] = lang
		}
		c.languages = append(c.languages, lang)
	}
	return c, nil
}

// Lookup resolves a language by name or alias.
func (c *Catalog) Lookup(name string) (Language, bool) {
	lang, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return lang, ok
}

// List returns the languages in catalogue order.
func (c *Catalog) List() []Language {
	out := make([]Language, len(c.languages))
	copy(out, c.languages)
	return out
}
