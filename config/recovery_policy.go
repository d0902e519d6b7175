package config

import (
	"fmt"
	"os"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"gopkg.in/yaml.v3"
)

// LoadRecoveryPolicy returns the default policy overlaid with the YAML file at
// path. An empty path yields the defaults.
//
//	abandonment: {from: 1h, to: 72h}
//	second_reminder: {from: 24h, to: 72h}
//	expire_after: 96h
func LoadRecoveryPolicy(path string) (models.RecoveryPolicy, error) {
	policy := models.DefaultRecoveryPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("failed to read recovery policy: %v", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return policy, fmt.Errorf("failed to parse recovery policy: %v", err)
	}
	if err := policy.Validate(); err != nil {
		return policy, fmt.Errorf("invalid recovery policy: %v", err)
	}
	return policy, nil
}
