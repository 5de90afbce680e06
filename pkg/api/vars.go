package api

import "maps"

// Vars is the name to value context accumulated during a run, or
// reconstructed from stored answers by the navigation resolvers
type Vars map[Name]any

// Clone returns a shallow copy of the Vars, never nil
func (v Vars) Clone() Vars {
	if v == nil {
		return Vars{}
	}
	return maps.Clone(v)
}

// Merge copies every entry of delta into the receiver, overwriting
// existing keys
func (v Vars) Merge(delta Vars) {
	for name, value := range delta {
		v[name] = value
	}
}

// GetString retrieves a string value, returning defaultValue if not found
// or wrong type
func (v Vars) GetString(name Name, defaultValue string) string {
	val, ok := v[name]
	if !ok {
		return defaultValue
	}
	s, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return s
}

// GetBool retrieves a boolean value, returning defaultValue if not found
// or wrong type
func (v Vars) GetBool(name Name, defaultValue bool) bool {
	val, ok := v[name]
	if !ok {
		return defaultValue
	}
	b, ok := val.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetInt retrieves an integer value, returning defaultValue if not found
// or wrong type. Supports both int and float64 (converting from JSON
// numbers)
func (v Vars) GetInt(name Name, defaultValue int) int {
	val, ok := v[name]
	if !ok {
		return defaultValue
	}
	if i, ok := val.(int); ok {
		return i
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return defaultValue
}

// ToStringMap converts the Vars to a plain map keyed by string, suitable
// for JSON normalization and script input projection
func (v Vars) ToStringMap() map[string]any {
	out := make(map[string]any, len(v))
	for name, value := range v {
		out[string(name)] = value
	}
	return out
}
