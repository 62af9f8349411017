// Package catalogue is the command knowledge the normalizer classifies
// tokens against: which words start a command, and which are options.
package catalogue

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/cmdtree/core/invariant"
	"github.com/aledsdavies/cmdtree/pkgs/errors"
)

//go:embed commands.yaml
var defaultDocument []byte

//go:embed schema.json
var schemaDocument []byte

const schemaURL = "schema://catalogue.json"

// signedNumber matches NumberExp/SizeExp/TimeExp arguments such as -7,
// -10k or -30m, which take an option dash without being options.
var signedNumber = regexp.MustCompile(`^-[0-9]+[kMGTPcbwsmhd]?$`)

// Document is the on-disk form of a catalogue
type Document struct {
	Version      string   `yaml:"version" json:"version"`
	HeadCommands []string `yaml:"head_commands" json:"head_commands"`
}

// Catalogue answers classification queries. It is immutable and safe for
// concurrent use.
type Catalogue struct {
	version string
	heads   map[string]struct{}
	names   []string
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalogue
)

// Default returns the built-in catalogue
func Default() *Catalogue {
	defaultOnce.Do(func() {
		c, err := Parse(defaultDocument)
		invariant.Invariant(err == nil, "built-in catalogue must load: %v", err)
		defaultCat = c
	})
	return defaultCat
}

// Load reads and validates a catalogue file
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(os.ExpandEnv(path))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCatalogue, fmt.Sprintf("cannot read catalogue %s", path), err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse validates a YAML catalogue document against the catalogue schema
// and builds a Catalogue from it.
func Parse(data []byte) (*Catalogue, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCatalogue, "catalogue is not valid YAML", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCatalogue, "cannot decode catalogue", err)
	}
	return FromDocument(doc), nil
}

// FromDocument builds a Catalogue from an already validated document
func FromDocument(doc Document) *Catalogue {
	c := &Catalogue{
		version: doc.Version,
		heads:   make(map[string]struct{}, len(doc.HeadCommands)),
	}
	for _, name := range doc.HeadCommands {
		if _, dup := c.heads[name]; dup {
			continue
		}
		c.heads[name] = struct{}{}
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		compiler.Formats = map[string]func(interface{}) bool{
			"semver": func(v interface{}) bool {
				s, ok := v.(string)
				if !ok {
					return true
				}
				// semver.IsValid requires the "v" prefix
				return semver.IsValid(s)
			},
		}
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaDocument)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validate checks a decoded YAML value against the schema. The value goes
// through JSON first so the validator sees JSON types only.
func validate(raw interface{}) error {
	s, err := compiledSchema()
	if err != nil {
		return errors.Wrap(errors.ErrCatalogue, "catalogue schema does not compile", err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return errors.Wrap(errors.ErrCatalogue, "catalogue is not representable as JSON", err)
	}
	var value interface{}
	if err := json.Unmarshal(encoded, &value); err != nil {
		return errors.Wrap(errors.ErrCatalogue, "catalogue is not representable as JSON", err)
	}

	if err := s.Validate(value); err != nil {
		return errors.Wrap(errors.ErrCatalogue, "catalogue does not match schema", err)
	}
	return nil
}

// Version returns the catalogue's semantic version
func (c *Catalogue) Version() string {
	return c.version
}

// IsHeadCommand reports whether token names a known utility
func (c *Catalogue) IsHeadCommand(token string) bool {
	_, ok := c.heads[token]
	return ok
}

// IsOption reports whether token is an option string: a dash followed by
// at least one character, excluding the end-of-options marker and signed
// numbers.
func (c *Catalogue) IsOption(token string) bool {
	if len(token) < 2 || token[0] != '-' || token == "--" {
		return false
	}
	return !signedNumber.MatchString(token)
}

// HeadCommands returns the known utilities in sorted order
func (c *Catalogue) HeadCommands() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Suggest returns the closest known utility for a misspelled or unknown
// token, or the empty string.
func (c *Catalogue) Suggest(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || c.IsHeadCommand(token) {
		return ""
	}
	ranks := fuzzy.RankFindFold(token, c.names)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
