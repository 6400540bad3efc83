// Package config loads the budgify configuration from a YAML file with
// BUDGIFY_ environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ArionMiles/budgify/pkg/categorize"
	"github.com/ArionMiles/budgify/pkg/entries"
)

// EnvPrefix prefixes every environment override. BUDGIFY_SOURCE_DIR sets
// source_dir and a double underscore nests: BUDGIFY_SERVER__ADDR sets
// server.addr.
const EnvPrefix = "BUDGIFY_"

// ClientSecretFile is the default path to the Google OAuth credentials JSON file.
const ClientSecretFile = "data/client_secret.json"

// Defaults.
const (
	DefaultSourceDir  = "statements"
	DefaultDataDir    = "data"
	DefaultServerAddr = "127.0.0.1:8080"
	DefaultTokenFile  = "data/token.json"
)

// listKeys are split on commas when set from the environment.
var listKeys = []string{"sink_order", "server.exclude_categories"}

// Config holds the application configuration.
type Config struct {
	// SourceDir is scanned for statement files.
	SourceDir string `koanf:"source_dir" validate:"required"`
	// DataDir holds outputs and credentials.
	DataDir string `koanf:"data_dir" validate:"required"`
	// IncludePayments keeps card payment rows.
	IncludePayments bool `koanf:"include_payments"`
	// ManualFile is an optional YAML list of manual transactions.
	ManualFile string `koanf:"manual_file"`

	// Loaders maps a file name token to a loader name, for statements whose
	// names do not contain the loader key.
	Loaders map[string]string `koanf:"loaders"`

	// Sinks maps a sink name to its plugin config.
	Sinks map[string]map[string]any `koanf:"sinks"`
	// SinkOrder is the write order. Defaults to the sorted sink names.
	SinkOrder []string `koanf:"sink_order"`
	// LedgerSource names the sink the ledger is read back from. Defaults to
	// the first configured sink that can be read.
	LedgerSource string `koanf:"ledger_source"`

	Recurring []entries.Recurring `koanf:"recurring_transactions"`

	Server ServerConfig `koanf:"server"`
	Google GoogleConfig `koanf:"google"`
	Log    LogConfig    `koanf:"log"`

	// Rules is read from the categories mapping of the same file.
	Rules *categorize.RuleSet `koanf:"-"`
	// Path is the file the config was loaded from, if any.
	Path string `koanf:"-"`
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
	// Password enables bearer/basic auth when set.
	Password string `koanf:"password"`
	// ExcludeCategories apply when a request names none.
	ExcludeCategories []string `koanf:"exclude_categories"`
}

// GoogleConfig locates Google API credentials for the sheets sink.
type GoogleConfig struct {
	// CredentialsFile is a service account key or an OAuth client secret.
	CredentialsFile string `koanf:"credentials_file"`
	// TokenFile caches the OAuth token for installed-app credentials.
	TokenFile string `koanf:"token_file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	JSON  bool   `koanf:"json"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		SourceDir: DefaultSourceDir,
		DataDir:   DefaultDataDir,
		Server: ServerConfig{
			Addr: DefaultServerAddr,
		},
		Google: GoogleConfig{
			CredentialsFile: ClientSecretFile,
			TokenFile:       DefaultTokenFile,
		},
		Log:   LogConfig{Level: "info"},
		Rules: categorize.NewRuleSet(),
	}
}

// Load reads path (skipped when empty), layers BUDGIFY_ environment
// variables on top, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Path = path

	if len(cfg.Sinks) == 0 {
		cfg.Sinks = map[string]map[string]any{
			"csv": {"dir": cfg.DataDir},
		}
	}

	if path != "" {
		rules, err := categorize.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps BUDGIFY_SERVER__EXCLUDE_CATEGORIES to
// server.exclude_categories and splits list values on commas.
func envKey(key, value string) (string, any) {
	k := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	k = strings.ReplaceAll(k, "__", ".")
	if slices.Contains(listKeys, k) {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return k, items
	}
	return k, value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and cross-field references.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, name := range c.SinkOrder {
		if _, ok := c.Sinks[name]; !ok {
			return fmt.Errorf("invalid config: sink_order names unconfigured sink %q", name)
		}
	}
	if c.LedgerSource != "" {
		if _, ok := c.Sinks[c.LedgerSource]; !ok {
			return fmt.Errorf("invalid config: ledger_source names unconfigured sink %q", c.LedgerSource)
		}
	}
	return nil
}

// SinkNames returns the sinks to write, in write order.
func (c *Config) SinkNames() []string {
	if len(c.SinkOrder) > 0 {
		return slices.Clone(c.SinkOrder)
	}
	names := make([]string, 0, len(c.Sinks))
	for name := range c.Sinks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SinkConfig returns the JSON plugin config of a sink.
func (c *Config) SinkConfig(name string) (json.RawMessage, error) {
	raw, ok := c.Sinks[name]
	if !ok {
		return nil, fmt.Errorf("sink %q is not configured", name)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding %s sink config: %w", name, err)
	}
	return data, nil
}

// ManualPath returns the manual transactions file, resolved against the
// config file directory when relative.
func (c *Config) ManualPath() string {
	if c.ManualFile == "" || filepath.IsAbs(c.ManualFile) || c.Path == "" {
		return c.ManualFile
	}
	if _, err := os.Stat(c.ManualFile); err == nil {
		return c.ManualFile
	}
	return filepath.Join(filepath.Dir(c.Path), c.ManualFile)
}
