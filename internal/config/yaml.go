package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

var ErrConfigRoot = errors.New("config root must be a mapping")

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// coerceToJSONBytes turns a YAML config into JSON so both formats go through
// the same strict decoder. Other files pass through untouched.
//
// The second result is the source format, "json" or "yaml".
func coerceToJSONBytes(name string, data []byte) ([]byte, string, error) {
	if !isYAML(name) {
		return data, "json", nil
	}

	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, "yaml", fmt.Errorf("%s: %w", name, err)
	}
	if root == nil {
		// empty document; Validate reports the missing sections
		root = map[string]any{}
	}
	doc, ok := toJSONValue(root).(map[string]any)
	if !ok {
		return nil, "yaml", fmt.Errorf("%s: %w", name, ErrConfigRoot)
	}

	j, err := json.Marshal(doc)
	if err != nil {
		return nil, "yaml", fmt.Errorf("%s: yaml->json: %w", name, err)
	}
	return j, "yaml", nil
}

// toJSONValue rewrites maps with non-string keys (YAML allows `1: x`) into
// string-keyed maps that encoding/json can marshal.
func toJSONValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = toJSONValue(e)
		}
		return x
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[fmt.Sprint(k)] = toJSONValue(e)
		}
		return m
	case []any:
		for i, e := range x {
			x[i] = toJSONValue(e)
		}
		return x
	default:
		return v
	}
}
