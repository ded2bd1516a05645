package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates a JSON schema for the Config struct, nested sections are inlined
func GenerateSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{RequiredFromJSONSchemaTags: true, DoNotReference: true, ExpandedStruct: true}
	return r.Reflect(&Config{})
}

// Verify checks the config against the schema reflected from Config tags:
// required fields set, enum values allowed and numbers not below their minimum
func Verify(cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return errors.Join(verifyNode("", GenerateSchema(), doc)...)
}

func verifyNode(path string, s *jsonschema.Schema, val any) []error {
	var errs []error
	switch v := val.(type) {
	case map[string]any:
		for _, name := range s.Required {
			if isZero(v[name]) {
				errs = append(errs, fmt.Errorf("%s is required", join(path, name)))
			}
		}
		if s.Properties == nil {
			return errs
		}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if fv, ok := v[pair.Key]; ok {
				errs = append(errs, verifyNode(join(path, pair.Key), pair.Value, fv)...)
			}
		}
	case string:
		if v != "" && len(s.Enum) > 0 && !slices.Contains(s.Enum, any(v)) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %v", path, v, s.Enum))
		}
	case float64:
		if s.Minimum == "" {
			return nil
		}
		if limit, err := s.Minimum.Float64(); err == nil && v < limit {
			errs = append(errs, fmt.Errorf("%s: %v is below minimum %v", path, v, limit))
		}
	}
	return errs
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	default:
		return false
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
