package model

import (
	"fmt"
	"strconv"
)

// Settings is the opaque key/value bag supplied for a single stage.
// The orchestrator never interprets its keys; each stage worker owns the
// shape of its own bag and validates it when it runs.
type Settings map[string]any

// Clone returns a shallow copy of the bag. Nested values are shared.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new bag holding the keys of base overridden by the keys of s.
func (s Settings) Merge(base Settings) Settings {
	out := base.Clone()
	if out == nil {
		out = make(Settings, len(s))
	}
	for k, v := range s {
		out[k] = v
	}
	return out
}

// String returns the value stored under key as a string.
// Numbers and booleans are formatted; other types are rejected.
func (s Settings) String(key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", fmt.Errorf("setting %q is missing", key)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("setting %q has unsupported type %T", key, v)
	}
}

// Float returns the value stored under key as a float64.
// String values are parsed, which is how browsers tend to submit numbers.
func (s Settings) Float(key string) (float64, error) {
	str, err := s.String(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("setting %q is not a number: %w", key, err)
	}
	return f, nil
}

// Int returns the value stored under key as an int.
func (s Settings) Int(key string) (int, error) {
	str, err := s.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("setting %q is not an integer: %w", key, err)
	}
	return n, nil
}

// Bool returns the value stored under key as a bool.
// A missing key reads as false.
func (s Settings) Bool(key string) (bool, error) {
	if _, ok := s[key]; !ok {
		return false, nil
	}
	str, err := s.String(key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("setting %q is not a boolean: %w", key, err)
	}
	return b, nil
}

// Strings returns the value stored under key as a list of strings.
// Both []string and the []any produced by JSON/YAML decoding are accepted.
func (s Settings) Strings(key string) ([]string, error) {
	v, ok := s[key]
	if !ok {
		return nil, fmt.Errorf("setting %q is missing", key)
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("setting %q: element %d is %T, not a string", key, i, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("setting %q is %T, not a list", key, v)
	}
}
