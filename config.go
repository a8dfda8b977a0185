package envelope

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by FromEnv.
const EnvPrefix = "ENVELOPE_"

// Config is the process-wide response configuration. It is read once at
// startup and passed by value to New; a Builder never changes it.
type Config struct {
	// PluralDataKey holds collection payloads.
	PluralDataKey string `yaml:"plural_data_key" env:"PLURAL_DATA_KEY"`

	// SingularDataKey holds single-entity payloads.
	SingularDataKey string `yaml:"singular_data_key" env:"SINGULAR_DATA_KEY"`

	// UsingForREST selects the singular key for the operations listed in
	// MethodsForSingularKey. When false the plural key is always used.
	UsingForREST bool `yaml:"using_for_rest" env:"USING_FOR_REST"`

	// MethodsForSingularKey lists the operation names answered with the
	// singular key. Matching is case-insensitive.
	MethodsForSingularKey []string `yaml:"methods_for_singular_key" env:"METHODS_FOR_SINGULAR_KEY"`

	// ForceJSONResponseHeader always sets Content-Type: application/json
	// instead of negotiating the encoder from the Accept header.
	ForceJSONResponseHeader bool `yaml:"force_json_response_header" env:"FORCE_JSON_RESPONSE_HEADER"`

	// WithoutWrapping drops the outer response/data layers.
	WithoutWrapping bool `yaml:"without_wrapping" env:"WITHOUT_WRAPPING"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		PluralDataKey:           "entities",
		SingularDataKey:         "entity",
		UsingForREST:            true,
		MethodsForSingularKey:   []string{OpShow, OpUpdate},
		ForceJSONResponseHeader: true,
		WithoutWrapping:         false,
	}
}

// LoadConfig decodes a YAML document over DefaultConfig. Keys missing from
// the document keep their defaults; unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: decode yaml: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML config file. See LoadConfig.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path) //nolint:gosec // caller-provided config path
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return LoadConfig(f)
}

// ConfigFromEnv overlays ENVELOPE_* environment variables on DefaultConfig.
func ConfigFromEnv() (Config, error) {
	return DefaultConfig().FromEnv()
}

// FromEnv returns a copy of c with any ENVELOPE_* environment variables
// applied. Variables that are not set leave the field untouched.
// METHODS_FOR_SINGULAR_KEY is a comma-separated list.
func (c Config) FromEnv() (Config, error) {
	out := c
	out.MethodsForSingularKey = slices.Clone(c.MethodsForSingularKey)

	if err := env.ParseWithOptions(&out, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %w", ErrInvalidConfig, err)
	}

	for i, m := range out.MethodsForSingularKey {
		out.MethodsForSingularKey[i] = strings.TrimSpace(m)
	}

	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

// Validate reports whether the data keys are usable.
func (c Config) Validate() error {
	if c.PluralDataKey == "" {
		return fmt.Errorf("%w: plural_data_key is empty", ErrInvalidConfig)
	}
	if c.SingularDataKey == "" {
		return fmt.Errorf("%w: singular_data_key is empty", ErrInvalidConfig)
	}
	if c.PluralDataKey == c.SingularDataKey {
		return fmt.Errorf("%w: plural and singular data keys are both %q", ErrInvalidConfig, c.PluralDataKey)
	}
	for _, k := range []string{c.PluralDataKey, c.SingularDataKey} {
		if isReservedKey(k) {
			return fmt.Errorf("%w: data key %q is reserved", ErrInvalidConfig, k)
		}
	}
	return nil
}

// IsSingular reports whether operation is one of MethodsForSingularKey.
func (c Config) IsSingular(operation string) bool {
	if operation == "" {
		return false
	}
	return slices.ContainsFunc(c.MethodsForSingularKey, func(m string) bool {
		return strings.EqualFold(m, operation)
	})
}
