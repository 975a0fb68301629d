package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/km-arc/go-interop/framework/http/validation"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Container ContainerConfig
	Inspector InspectorConfig

	// raw boolean env values as read by Load, kept for Validate
	flags map[string]string
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

type LogConfig struct {
	Level  string // logrus level name
	Format string // text | json
}

type ContainerConfig struct {
	VerifyDependencies bool
	Warm               []string // keys resolved at boot; "*" means every key
	ManifestPath       string
}

type InspectorConfig struct {
	Prefix  string
	Metrics bool
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	cfg := &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "interop"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			Port:  env("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "text"),
		},
		Container: ContainerConfig{
			VerifyDependencies: envBool("CONTAINER_VERIFY_DEPS", false),
			Warm:               envList("CONTAINER_WARM"),
			ManifestPath:       env("MANIFEST_PATH", ""),
		},
		Inspector: InspectorConfig{
			Prefix:  env("INSPECTOR_PREFIX", "/_container"),
			Metrics: envBool("METRICS_ENABLED", true),
		},
	}
	cfg.flags = rawEnv("APP_DEBUG", "CONTAINER_VERIFY_DEPS", "METRICS_ENABLED")
	return cfg
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// IsLocal etc. report APP_ENV.
func (c *Config) IsLocal() bool      { return c.App.Env == "local" }
func (c *Config) IsProduction() bool { return c.App.Env == "production" }
func (c *Config) IsTesting() bool    { return c.App.Env == "testing" }

// WarmAll reports whether CONTAINER_WARM asks for every key.
func (c ContainerConfig) WarmAll() bool {
	return len(c.Warm) == 1 && c.Warm[0] == "*"
}

// rules for Validate; booleans are checked on the raw env values since Load
// falls back to the default on a malformed one.
var rules = validation.Rules{
	"APP_NAME":              "required|alpha_dash|min:2|max:64",
	"APP_ENV":               "sometimes|in:local,production,testing",
	"APP_PORT":              "required|integer|max:5",
	"LOG_LEVEL":             "sometimes|in:panic,fatal,error,warn,warning,info,debug,trace",
	"LOG_FORMAT":            "sometimes|in:text,json",
	"INSPECTOR_PREFIX":      "sometimes|regex:^/[A-Za-z0-9._/-]*$|not_in:/",
	"APP_DEBUG":             "sometimes|boolean",
	"CONTAINER_VERIFY_DEPS": "sometimes|boolean",
	"METRICS_ENABLED":       "sometimes|boolean",
}

// Validate reports malformed settings, keyed by environment variable.
func (c *Config) Validate() error {
	data := map[string]string{
		"APP_NAME":         c.App.Name,
		"APP_ENV":          c.App.Env,
		"APP_PORT":         c.App.Port,
		"LOG_LEVEL":        c.Log.Level,
		"LOG_FORMAT":       c.Log.Format,
		"INSPECTOR_PREFIX": c.Inspector.Prefix,
	}
	for k, v := range c.flags {
		data[k] = v
	}
	if err := validation.Check(data, rules); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envList splits a comma-separated value, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func rawEnv(keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = os.Getenv(k)
	}
	return out
}
