package config

import (
	"fmt"
	"strconv"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, k := range keys {
		if k.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    k.key,
			EnvVar: k.env,
			Value:  k.extract(cfg),
		})
	}
	return result
}

// SetKey validates and writes a config key to the file backend.
func SetKey(key, value string) error {
	k, ok := findKey(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if k.secret {
		return fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, k.env)
	}

	// Run the value through the key's own parser so bad input is
	// rejected before it reaches the file.
	var probe Config
	if err := k.apply(&probe, value); err != nil {
		return err
	}

	b := newFileBackend()
	if k.typ == kInt {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		return b.SetInt(key, i)
	}
	return b.SetString(key, value)
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var names []string
	for _, k := range keys {
		if !k.secret {
			names = append(names, k.key)
		}
	}
	return names
}
