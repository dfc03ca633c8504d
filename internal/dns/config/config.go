package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/rr-zoned/internal/dns/repos/persistence"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Actor is recorded in the log for changes made by the seed importer.
	Actor string `koanf:"actor" validate:"required"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// LookupCacheSize bounds the per-snapshot query name to zone memo. 0 disables it.
	LookupCacheSize int `koanf:"lookup_cache_size" validate:"gte=0"`

	// SeedDir optionally names a directory of zone seed files imported at startup.
	SeedDir string `koanf:"seed_dir"`

	// StorageBackend selects the persistence implementation: "bolt" or "file".
	StorageBackend string `koanf:"storage_backend" validate:"required,storage_backend"`

	// StoragePath is the bolt database or YAML file holding the zone collection.
	StoragePath string `koanf:"storage_path" validate:"required"`

	// TokenFPRate is the false-positive rate of the dynamic-update token prefilter.
	TokenFPRate float64 `koanf:"token_fp_rate" validate:"gt=0,lt=1"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings for the zone service.
var DEFAULT_APP_CONFIG = AppConfig{
	Actor:           "seed",
	Env:             "prod",
	LogLevel:        "info",
	LookupCacheSize: 1024,
	SeedDir:         "",
	StorageBackend:  string(persistence.BackendBolt),
	StoragePath:     "/var/lib/rr-zoned/zones.db",
	TokenFPRate:     0.01,
}

// validStorageBackend reports whether the field names a backend persistence.Open accepts.
func validStorageBackend(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	for _, b := range persistence.SupportedBackends() {
		if string(b) == name {
			return true
		}
	}
	return false
}

// envLoader loads environment variables with the prefix "ZONED_", lowercased and with the
// prefix removed. It can be replaced in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "ZONED_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "ZONED_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into k using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "storage_backend" tag with the provided validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("storage_backend", validStorageBackend)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
