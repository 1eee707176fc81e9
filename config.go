package dbtrigger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// OptionsFromFile loads deployment options from a file, auto-detecting
// the format by extension. Supported extensions: .yaml, .yml, .json.
//
// The result is the raw object shape accepted by the On* constructors:
//
//	opts, err := dbtrigger.OptionsFromFile("trigger.yaml")
//	if err != nil { ... }
//	fn, err := dbtrigger.OnValueWritten[User](opts, handler)
func OptionsFromFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return OptionsFromYAML(data)
	case ".json":
		return OptionsFromJSON(data)
	default:
		return nil, fmt.Errorf("unsupported options file extension: %s", ext)
	}
}

// OptionsFromYAML parses a YAML options document.
func OptionsFromYAML(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse yaml options: %w", err)
	}
	return m, nil
}

// OptionsFromJSON parses a JSON options document.
func OptionsFromJSON(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse json options: %w", err)
	}
	return m, nil
}
