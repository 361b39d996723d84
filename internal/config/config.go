// Package config loads runtime configuration from a YAML file with RARE_*
// environment variable overrides layered on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full runtime configuration.
type Config struct {
	// ListenAddr is the submission server bind address.
	ListenAddr string `koanf:"listen_addr"`
	// Endpoint is where the session controller posts completed nominations.
	Endpoint string `koanf:"endpoint"`
	// ConfirmationURL is handed to the redirect hook after success.
	ConfirmationURL string `koanf:"confirmation_url"`
	// ReferencePrefix leads generated reference codes (PREFIX-YYYYMM-NNNN).
	ReferencePrefix string `koanf:"reference_prefix"`
	// DefinitionPath optionally overrides the embedded form definition.
	DefinitionPath string `koanf:"definition_path"`
	// StoragePath is the SQLite file backing the persistent scope.
	StoragePath string `koanf:"storage_path"`
	// StorageQuotaBytes bounds the persistent scope; zero means unbounded.
	StorageQuotaBytes int `koanf:"storage_quota_bytes"`
	// DraftCap bounds the stored draft list.
	DraftCap int `koanf:"draft_cap"`
	// AutosaveDebounce is the quiet window before autosave writes.
	AutosaveDebounce time.Duration `koanf:"autosave_debounce"`
	// SubmitTimeout bounds the submission round trip.
	SubmitTimeout time.Duration `koanf:"submit_timeout"`
	// RedirectDelay is how long the confirmation lingers before redirecting.
	RedirectDelay time.Duration `koanf:"redirect_delay"`
	// AllowAllOrigins relaxes CORS for development.
	AllowAllOrigins bool `koanf:"allow_all_origins"`
}

// DefaultConfig returns the configuration used when nothing is provided.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ":8788",
		Endpoint:          "http://localhost:8788/api/submit-nomination",
		ConfirmationURL:   "/confirmation",
		ReferencePrefix:   "RARE",
		StoragePath:       ".formflow/storage.db",
		StorageQuotaBytes: 0,
		DraftCap:          5,
		AutosaveDebounce:  2 * time.Second,
		SubmitTimeout:     15 * time.Second,
		RedirectDelay:     3 * time.Second,
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (RARE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: RARE_LISTEN_ADDR -> listen_addr, etc.
	if err := k.Load(env.Provider("RARE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "RARE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration contains workable values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.DraftCap < 1 {
		return fmt.Errorf("draft_cap must be at least 1")
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("submit_timeout must be positive")
	}
	if c.StorageQuotaBytes < 0 {
		return fmt.Errorf("storage_quota_bytes must be non-negative")
	}
	return nil
}
