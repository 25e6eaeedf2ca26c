package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ColorTables is the standalone color-table file format:
//
//	hsv_ranges:
//	  - {name: Red, lower: [0, 100, 100], upper: [10, 255, 255]}
//	rgb_rules:
//	  - {name: Red, lower: [201, 0, 0], upper: [255, 49, 49]}
//
// Either list may be omitted.
type ColorTables struct {
	HSVRanges []RangeConfig `yaml:"hsv_ranges,omitempty"`
	RGBRules  []RangeConfig `yaml:"rgb_rules,omitempty"`
}

// LoadColorTable reads and validates a color-table file.
func LoadColorTable(path string) (ColorTables, error) {
	f, err := os.Open(path)
	if err != nil {
		return ColorTables{}, fmt.Errorf("failed to open color table: %w", err)
	}
	defer f.Close()

	tables, err := DecodeColorTable(f)
	if err != nil {
		return ColorTables{}, fmt.Errorf("failed to load color table %s: %w", path, err)
	}
	return tables, nil
}

// DecodeColorTable decodes a color-table document. Unknown keys are errors.
func DecodeColorTable(r io.Reader) (ColorTables, error) {
	var tables ColorTables
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tables); err != nil {
		if err == io.EOF {
			return ColorTables{}, nil
		}
		return ColorTables{}, err
	}
	if _, err := TableFromRanges(tables.HSVRanges); err != nil {
		return ColorTables{}, fmt.Errorf("hsv_ranges: %w", err)
	}
	if _, err := TableFromRanges(tables.RGBRules); err != nil {
		return ColorTables{}, fmt.Errorf("rgb_rules: %w", err)
	}
	return tables, nil
}

// Marshal renders the configuration as YAML, in the same shape Load reads.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
