package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// LoadWithWarnings parses config data and returns any unknown field warnings.
func LoadWithWarnings(path string, data []byte) (*Config, []string, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	warnings := detectUnknownFields(data)

	return &cfg, warnings, nil
}

// detectUnknownFields compares raw JSON with known struct fields.
// Since this is called after successful Config parsing, a parse failure
// here would indicate an unexpected internal inconsistency.
func detectUnknownFields(data []byte) []string {
	var warnings []string

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{"internal: failed to re-parse config for unknown field detection"}
	}

	knownTopLevel := getJSONFields(reflect.TypeOf(Config{}))
	for _, key := range sortedKeys(raw) {
		if key == "$schema" {
			continue
		}
		if !knownTopLevel[key] {
			warnings = append(warnings, fmt.Sprintf("unknown field %q at root level (ignored)", key))
		}
	}

	sections := []struct {
		name string
		typ  reflect.Type
	}{
		{"tests", reflect.TypeOf(TestsConfig{})},
		{"render", reflect.TypeOf(RenderConfig{})},
		{"diff", reflect.TypeOf(DiffConfig{})},
	}
	for _, s := range sections {
		if sectionRaw, ok := raw[s.name]; ok {
			warnings = append(warnings, checkSectionUnknownFields(s.name, sectionRaw, s.typ)...)
		}
	}

	if backendsRaw, ok := raw["backends"]; ok {
		warnings = append(warnings, checkBackendsUnknownFields(backendsRaw)...)
	}

	return warnings
}

func checkSectionUnknownFields(section string, data json.RawMessage, t reflect.Type) []string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	known := getJSONFields(t)
	var warnings []string
	for _, key := range sortedKeys(fields) {
		if !known[key] {
			warnings = append(warnings, fmt.Sprintf("unknown field %q in %s (ignored)", key, section))
		}
	}
	return warnings
}

func checkBackendsUnknownFields(data json.RawMessage) []string {
	var backends map[string]json.RawMessage
	if err := json.Unmarshal(data, &backends); err != nil {
		return []string{"internal: failed to re-parse backends for unknown field detection"}
	}

	known := getJSONFields(reflect.TypeOf(BackendConfig{}))
	var warnings []string
	for _, name := range sortedKeys(backends) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(backends[name], &fields); err != nil {
			continue
		}
		for _, key := range sortedKeys(fields) {
			if !known[key] {
				warnings = append(warnings, fmt.Sprintf("unknown field %q in backend %q (ignored)", key, name))
			}
		}
	}
	return warnings
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// getJSONFields returns a map of known JSON field names for a struct type.
func getJSONFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name != "" {
			fields[name] = true
		}
	}
	return fields
}
