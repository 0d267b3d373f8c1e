package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds CLI configuration
type Config struct {
	ServerURL    string
	IdentityFile string
	ConfigPath   string
	Output       string
	Verbose      bool
}

// SavedIdentity is the identity last issued to this CLI. Reclaiming it
// needs both the username and the client name it was bound to.
type SavedIdentity struct {
	Username   string `yaml:"username"`
	ClientName string `yaml:"client_name"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    getEnvOrDefault("FECTL_SERVER", "http://localhost:8080"),
		IdentityFile: getEnvOrDefault("FECTL_IDENTITY_FILE", defaultIdentityFile()),
		ConfigPath:   os.Getenv("FRIENDS_CONFIG"),
		Output:       "text",
		Verbose:      false,
	}
}

// LoadIdentity reads the saved identity. A missing file yields nil.
func (c *Config) LoadIdentity() (*SavedIdentity, error) {
	data, err := os.ReadFile(c.IdentityFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var id SavedIdentity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	if id.Username == "" {
		return nil, nil
	}
	return &id, nil
}

// SaveIdentity writes the identity to the identity file
func (c *Config) SaveIdentity(id SavedIdentity) error {
	data, err := yaml.Marshal(id)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.IdentityFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.IdentityFile, data, 0600)
}

func defaultIdentityFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fectl/identity.yaml"
	}
	return filepath.Join(home, ".fectl", "identity.yaml")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
