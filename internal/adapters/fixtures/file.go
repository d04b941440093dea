// Package fixtures loads declarative response files into the response store
// and keeps them applied while the file changes.
package fixtures

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a parsed fixtures document:
//
//	responses:        # JSON encoded before storing; null stores the marker
//	  orders.tBTCUSD: [42]
//	raw:              # stored verbatim
//	  broken: "not json"
type File struct {
	Responses map[string]any    `yaml:"responses"`
	Raw       map[string]string `yaml:"raw"`
}

// Load reads and validates the fixtures file at path. JSON documents are
// accepted as YAML.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return Parse(data)
}

// Parse decodes a fixtures document. Unknown top-level sections are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for key := range f.Raw {
		if _, dup := f.Responses[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
	}
	if _, err := f.Entries(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Entries flattens the file into store values. The empty string is the null
// marker.
func (f *File) Entries() (map[string]string, error) {
	out := make(map[string]string, len(f.Responses)+len(f.Raw))
	for key, v := range f.Responses {
		if v == nil {
			out[key] = ""
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", ErrEncode, key, err)
		}
		out[key] = string(b)
	}
	for key, v := range f.Raw {
		out[key] = v
	}
	return out, nil
}
