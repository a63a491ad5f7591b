// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/united-manufacturing-hub/service-scaffold/internal"
)

// DatabaseOptions tunes the connection provider and repositories.
type DatabaseOptions struct {
	ConnectTimeout  time.Duration
	ConnectAttempts int
	QueryTimeout    time.Duration
	// Synchronize runs EnsureSchema at startup.
	Synchronize bool
	// MaxConns caps the pool size. Zero keeps the driver default.
	MaxConns int
}

type databaseOptionsEnv struct {
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	ConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
	QueryTimeout    time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"10s"`
	Synchronize     string        `env:"DB_SYNCHRONIZE"`
	MaxConns        int           `env:"DB_MAX_CONNS" envDefault:"0"`
	AppEnv          string        `env:"APP_ENV" envDefault:"development"`
}

// ResolveDatabaseOptions reads the DB_* tuning variables.
func ResolveDatabaseOptions(e Environment) (DatabaseOptions, error) {
	var raw databaseOptionsEnv
	if err := parse(e, &raw); err != nil {
		return DatabaseOptions{}, err
	}

	opts := DatabaseOptions{
		ConnectTimeout:  raw.ConnectTimeout,
		ConnectAttempts: raw.ConnectAttempts,
		QueryTimeout:    raw.QueryTimeout,
		Synchronize:     !strings.EqualFold(raw.AppEnv, "production"),
		MaxConns:        raw.MaxConns,
	}
	if raw.Synchronize != "" {
		b, err := strconv.ParseBool(raw.Synchronize)
		if err != nil {
			return DatabaseOptions{}, invalid("DB_SYNCHRONIZE", "not a boolean: %q", raw.Synchronize)
		}
		opts.Synchronize = b
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = internal.DefaultConnectTimeout
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 1
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = internal.DefaultQueryTimeout
	}
	if opts.MaxConns < 0 {
		return DatabaseOptions{}, invalid("DB_MAX_CONNS", "must not be negative")
	}
	return opts, nil
}

// CacheConfig configures the cache facade and its stores.
type CacheConfig struct {
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DefaultTTL    time.Duration
	// MaxEntries bounds the local store. Zero means unbounded.
	MaxEntries        int
	KeyPrefix         string
	Fallback          bool
	CompressThreshold int
	HashKeys          bool
	OpTimeout         time.Duration
}

type cacheEnv struct {
	RedisEnabled      bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost         string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort         int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	TTLSeconds        int           `env:"REDIS_TTL" envDefault:"3600"`
	Max               int           `env:"REDIS_MAX" envDefault:"0"`
	KeyPrefix         string        `env:"REDIS_KEY_PREFIX" envDefault:"scaffold"`
	Fallback          bool          `env:"CACHE_FALLBACK" envDefault:"true"`
	CompressThreshold int           `env:"CACHE_COMPRESS_THRESHOLD" envDefault:"0"`
	HashKeys          bool          `env:"CACHE_HASH_KEYS" envDefault:"false"`
	OpTimeout         time.Duration `env:"CACHE_OP_TIMEOUT" envDefault:"500ms"`
}

// ResolveCache reads the REDIS_* and CACHE_* variables.
func ResolveCache(e Environment) (CacheConfig, error) {
	var raw cacheEnv
	if err := parse(e, &raw); err != nil {
		return CacheConfig{}, err
	}
	if raw.TTLSeconds <= 0 {
		return CacheConfig{}, invalid("REDIS_TTL", "must be positive")
	}
	if raw.Max < 0 {
		return CacheConfig{}, invalid("REDIS_MAX", "must not be negative")
	}
	if raw.OpTimeout <= 0 {
		raw.OpTimeout = 500 * time.Millisecond
	}
	return CacheConfig{
		RedisEnabled:      raw.RedisEnabled,
		RedisAddr:         raw.RedisHost + ":" + strconv.Itoa(raw.RedisPort),
		RedisPassword:     raw.RedisPassword,
		RedisDB:           raw.RedisDB,
		DefaultTTL:        time.Duration(raw.TTLSeconds) * time.Second,
		MaxEntries:        raw.Max,
		KeyPrefix:         raw.KeyPrefix,
		Fallback:          raw.Fallback,
		CompressThreshold: raw.CompressThreshold,
		HashKeys:          raw.HashKeys,
		OpTimeout:         raw.OpTimeout,
	}, nil
}

// AppConfig holds the HTTP surface settings shared by all services.
type AppConfig struct {
	Name               string
	Env                string
	APIPrefix          string
	Port               int
	APIServerPort      int
	WebsocketPort      int
	AdminPort          int
	CompressionEnabled bool
	CompressionLevel   int
}

type appEnv struct {
	Name               string `env:"APP_NAME" envDefault:"service"`
	Env                string `env:"APP_ENV" envDefault:"development"`
	APIPrefix          string `env:"API_PREFIX" envDefault:"api"`
	Port               int    `env:"PORT" envDefault:"0"`
	APIServerPort      int    `env:"API_SERVER_PORT" envDefault:"3001"`
	WebsocketPort      int    `env:"WEBSOCKET_PORT" envDefault:"3002"`
	AdminPort          int    `env:"ADMIN_PORT" envDefault:"3003"`
	CompressionEnabled bool   `env:"COMPRESSION_ENABLED" envDefault:"true"`
	CompressionLevel   int    `env:"COMPRESSION_LEVEL" envDefault:"-1"`
}

// ResolveApp reads the APP_* and port variables.
func ResolveApp(e Environment) (AppConfig, error) {
	var raw appEnv
	if err := parse(e, &raw); err != nil {
		return AppConfig{}, err
	}
	if raw.CompressionLevel < -1 || raw.CompressionLevel > 9 {
		return AppConfig{}, invalid("COMPRESSION_LEVEL", "must be between -1 and 9")
	}
	return AppConfig(raw), nil
}

// IsProduction reports whether APP_ENV is production.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// ListenPort returns PORT when set, fallback otherwise.
func (a AppConfig) ListenPort(fallback int) int {
	if a.Port > 0 {
		return a.Port
	}
	return fallback
}

// AuthConfig configures token issuing and the admin seed.
type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTExpiresIn     time.Duration `env:"JWT_EXPIRES_IN" envDefault:"1h"`
	RefreshSecret    string        `env:"JWT_REFRESH_SECRET"`
	RefreshExpiresIn time.Duration `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"168h"`
	AdminEmail       string        `env:"ADMIN_EMAIL"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`
}

// ResolveAuth reads the JWT_* and ADMIN_* variables.
func ResolveAuth(e Environment) (AuthConfig, error) {
	var cfg AuthConfig
	if err := parse(e, &cfg); err != nil {
		return AuthConfig{}, err
	}
	if cfg.JWTExpiresIn <= 0 {
		return AuthConfig{}, invalid("JWT_EXPIRES_IN", "must be positive")
	}
	return cfg, nil
}

// SecurityConfig configures request rate limiting.
type SecurityConfig struct {
	RateLimitWindow       time.Duration
	RateLimitMax          int
	StrictRateLimitWindow time.Duration
	StrictRateLimitMax    int
	TrustedIPs            []string
}

type securityEnv struct {
	WindowMS       int64    `env:"RATE_LIMIT_WINDOW_MS" envDefault:"900000"`
	Max            int      `env:"RATE_LIMIT_MAX" envDefault:"100"`
	StrictWindowMS int64    `env:"RATE_LIMIT_STRICT_WINDOW_MS" envDefault:"900000"`
	StrictMax      int      `env:"RATE_LIMIT_STRICT_MAX" envDefault:"5"`
	TrustedIPs     []string `env:"TRUSTED_IPS" envSeparator:","`
}

// ResolveSecurity reads the RATE_LIMIT_* and TRUSTED_IPS variables.
func ResolveSecurity(e Environment) (SecurityConfig, error) {
	var raw securityEnv
	if err := parse(e, &raw); err != nil {
		return SecurityConfig{}, err
	}
	if raw.WindowMS <= 0 || raw.StrictWindowMS <= 0 {
		return SecurityConfig{}, invalid("RATE_LIMIT_WINDOW_MS", "must be positive")
	}
	if raw.Max <= 0 || raw.StrictMax <= 0 {
		return SecurityConfig{}, invalid("RATE_LIMIT_MAX", "must be positive")
	}

	trusted := make([]string, 0, len(raw.TrustedIPs))
	for _, ip := range raw.TrustedIPs {
		if ip = strings.TrimSpace(ip); ip != "" {
			trusted = append(trusted, ip)
		}
	}
	return SecurityConfig{
		RateLimitWindow:       time.Duration(raw.WindowMS) * time.Millisecond,
		RateLimitMax:          raw.Max,
		StrictRateLimitWindow: time.Duration(raw.StrictWindowMS) * time.Millisecond,
		StrictRateLimitMax:    raw.StrictMax,
		TrustedIPs:            trusted,
	}, nil
}
