package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dad1755/ktransport/internal/domain"
	"gopkg.in/yaml.v3"
)

const secretsEnvPrefix = "KTRANSPORT_"

// Credentials are the operator secrets. They are opaque strings and must
// never reach logs or notification bodies.
type Credentials struct {
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	Receiver       string `yaml:"receiver"`
	WhatsAppNumber string `yaml:"whatsapp_number"`
	APIKey         string `yaml:"api_key"`
}

func (Credentials) String() string   { return "config.Credentials{REDACTED}" }
func (Credentials) GoString() string { return "config.Credentials{REDACTED}" }

// LoadCredentials reads the secrets file at path and overlays KTRANSPORT_<KEY>
// environment variables. A missing file is tolerated when the environment
// supplies every key. lookup defaults to os.LookupEnv.
func LoadCredentials(path string, lookup func(string) (string, bool)) (Credentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var creds Credentials
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &creds); err != nil {
			return Credentials{}, domain.ConfigurationError{Err: fmt.Errorf("failed to parse secrets: %w", err)}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Credentials{}, domain.ConfigurationError{Err: fmt.Errorf("failed to read secrets: %w", err)}
	}

	fields := []struct {
		key string
		dst *string
	}{
		{"email", &creds.Email},
		{"password", &creds.Password},
		{"receiver", &creds.Receiver},
		{"whatsapp_number", &creds.WhatsAppNumber},
		{"api_key", &creds.APIKey},
	}
	for _, f := range fields {
		if v, ok := lookup(secretsEnvPrefix + strings.ToUpper(f.key)); ok && strings.TrimSpace(v) != "" {
			*f.dst = strings.TrimSpace(v)
		}
		if strings.TrimSpace(*f.dst) == "" {
			return Credentials{}, domain.ConfigurationError{Key: f.key}
		}
	}
	return creds, nil
}
