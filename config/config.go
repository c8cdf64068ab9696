// Package config loads the settings of an unplugged deployment with viper.
//
// A document (yaml, json or toml) supplies the values; any key can be
// overridden from the environment with the UNPLUGGED_ prefix, dots replaced
// by underscores:
//
//	UNPLUGGED_NONCE_LIFETIME=1h
//	UNPLUGGED_STORE_DRIVER=redis
//
// Operator constants such as AUTH_KEY live under the "constants" key and are
// exposed through [Constants], which satisfies store.ConfigSource.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/hasbyte1/go-unplugged/avatar"
	"github.com/hasbyte1/go-unplugged/hashing"
	"github.com/hasbyte1/go-unplugged/nonce"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "UNPLUGGED"

// Store drivers accepted in [StoreConfig.Driver].
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// ErrInvalidConfig is returned when a loaded document fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the full set of deployment settings.
type Config struct {
	Nonce    NonceConfig    `mapstructure:"nonce"`
	Password PasswordConfig `mapstructure:"password"`
	Avatar   AvatarConfig   `mapstructure:"avatar"`
	Store    StoreConfig    `mapstructure:"store"`

	// Constants is filled from the "constants" section and the environment.
	Constants Constants `mapstructure:"-"`
}

// NonceConfig configures stateless and session nonces.
type NonceConfig struct {
	Lifetime   time.Duration `mapstructure:"lifetime" validate:"gte=2s"`
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"gte=1s"`
}

// PasswordConfig is the Argon2id profile new hashes are made with.
type PasswordConfig struct {
	Memory     uint32 `mapstructure:"memory" validate:"gte=8"`
	Time       uint32 `mapstructure:"time" validate:"gte=1"`
	Threads    uint8  `mapstructure:"threads" validate:"gte=1"`
	RehashOdds int    `mapstructure:"rehash_odds" validate:"gte=1"`
}

// Argon2Options returns the profile as hasher options.
func (p PasswordConfig) Argon2Options() hashing.Argon2Options {
	opts := hashing.InteractiveArgon2Options()
	opts.Memory = p.Memory
	opts.Time = p.Time
	opts.Threads = p.Threads
	return opts
}

// AvatarConfig configures the avatar engine.
type AvatarConfig struct {
	BaseURL   string   `mapstructure:"base_url" validate:"omitempty,url"`
	Default   string   `mapstructure:"default"`
	Rating    string   `mapstructure:"rating" validate:"omitempty,oneof=g pg r x G PG R X"`
	Domains   []string `mapstructure:"domains"`
	Addresses []string `mapstructure:"addresses"`
}

// StoreConfig selects and addresses the persistence backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=memory redis postgres"`
	RedisURL    string `mapstructure:"redis_url" validate:"required_if=Driver redis"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	PostgresURL string `mapstructure:"postgres_url" validate:"required_if=Driver postgres"`
}

var validate = validator.New()

// Load reads the document at pathFile.  Its format is taken from the
// extension.
func Load(pathFile string) (*Config, error) {
	v := newViper()
	filename := path.Base(pathFile)
	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(strings.TrimSuffix(filename, path.Ext(filename)))
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		v.SetConfigType(ext)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", pathFile, err)
	}
	return decode(v)
}

// FromBytes reads a document held in memory.  configType is a format viper
// supports ("yaml", "json", "toml").
func FromBytes(configType string, data []byte) (*Config, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config: config type is required")
	}
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: reading %s document: %w", configType, err)
	}
	return decode(v)
}

// Default returns the configuration of an empty document, with environment
// overrides applied.
func Default() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	argon := hashing.InteractiveArgon2Options()
	v.SetDefault("nonce.lifetime", nonce.DefaultLifetime)
	v.SetDefault("nonce.session_ttl", nonce.DefaultLifetime)
	v.SetDefault("password.memory", argon.Memory)
	v.SetDefault("password.time", argon.Time)
	v.SetDefault("password.threads", argon.Threads)
	v.SetDefault("password.rehash_odds", hashing.DefaultRehashOdds)
	v.SetDefault("avatar.base_url", avatar.DefaultBaseURL)
	v.SetDefault("avatar.default", avatar.DefaultAvatar)
	v.SetDefault("avatar.rating", avatar.DefaultRating)
	v.SetDefault("avatar.domains", []string{})
	v.SetDefault("avatar.addresses", []string{})
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.redis_prefix", "unplugged:")
	v.SetDefault("store.postgres_url", "")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Constants = Constants{v: v, env: os.LookupEnv}
	return &cfg, nil
}

// Constants resolves operator constants.  A name such as AUTH_KEY is looked
// up as constants.auth_key in the document (or UNPLUGGED_CONSTANTS_AUTH_KEY),
// then as the bare environment variable AUTH_KEY.
type Constants struct {
	v   *viper.Viper
	env func(string) (string, bool)
}

// Constant implements store.ConfigSource.
func (c Constants) Constant(name string) (string, bool) {
	if c.v != nil {
		key := "constants." + strings.ToLower(name)
		if c.v.IsSet(key) {
			return c.v.GetString(key), true
		}
	}
	if c.env != nil {
		return c.env(name)
	}
	return "", false
}
