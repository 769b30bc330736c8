package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"churn_service/internal/core"
)

// LoadPolicy reads a YAML risk policy. Keys absent from the file keep
// their default values. An empty path returns the defaults.
func LoadPolicy(path string) (core.Policy, error) {
	policy := core.DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return core.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(raw)
}

func ParsePolicy(raw []byte) (core.Policy, error) {
	policy := core.DefaultPolicy()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	// An empty document leaves the defaults in place.
	if err := dec.Decode(&policy); err != nil && !errors.Is(err, io.EOF) {
		return core.Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return core.Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return policy, nil
}
