// Package schema loads the ordered column names shared by every snapshot table.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/fmtrends/internal/table"
)

// ErrInvalidSchema marks a header file that is missing, unreadable or malformed.
var ErrInvalidSchema = errors.New("invalid header schema")

// Schema is the ordered list of column names applied to every snapshot table.
type Schema []string

// Load reads a header file holding a list of column names. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON.
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	var names []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &names)
	default:
		err = json.Unmarshal(data, &names)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidSchema, path, err)
	}

	s := Schema(names)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks that the schema is non-empty, names are unique and non-blank,
// and the reserved Year column is not declared.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidSchema)
	}
	seen := make(map[string]int, len(s))
	for i, name := range s {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: column %d is blank", ErrInvalidSchema, i)
		}
		if name == table.YearColumn {
			return fmt.Errorf("%w: column %q is reserved", ErrInvalidSchema, name)
		}
		if j, dup := seen[name]; dup {
			return fmt.Errorf("%w: column %q at %d and %d", ErrInvalidSchema, name, j, i)
		}
		seen[name] = i
	}
	return nil
}

// Has reports whether the schema declares name.
func (s Schema) Has(name string) bool {
	return slices.Contains(s, name)
}
