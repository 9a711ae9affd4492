package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable, e.g. TASKBOARD_HTTP_PORT.
const DefaultEnvPrefix = "TASKBOARD"

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// ViperLoader loads configuration with precedence
// flags > env > secrets file > config file > defaults.
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      map[string]*pflag.Flag
}

// NewViperLoader creates a new ViperLoader. configFile may be empty.
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	if strings.TrimSpace(envPrefix) == "" {
		envPrefix = DefaultEnvPrefix
	}
	return &ViperLoader{configFile: configFile, envPrefix: envPrefix, flags: map[string]*pflag.Flag{}}
}

// WithFlag binds a command-line flag to a configuration key such as "http.port".
// Nil flags are ignored.
func (l *ViperLoader) WithFlag(key string, flag *pflag.Flag) *ViperLoader {
	if flag != nil {
		l.flags[key] = flag
	}
	return l
}

// Load reads, unmarshals and validates the configuration.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	keys := configKeys(reflect.TypeOf(Config{}), "")
	defaults := flatten(reflect.ValueOf(*DefaultConfig()), "")
	for _, key := range keys {
		v.SetDefault(key, defaults[key])
		if err := v.BindEnv(key, l.envName(key)); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	secretsFile, err := l.discoverSecretsFile()
	if err != nil {
		return nil, err
	}
	if secretsFile != "" {
		v.SetConfigFile(secretsFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read secrets file %s: %w", secretsFile, err)
		}
	}

	for key, flag := range l.flags {
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envName maps "http.read_timeout" to "TASKBOARD_HTTP_READ_TIMEOUT".
func (l *ViperLoader) envName(key string) string {
	return strings.ToUpper(l.envPrefix + "_" + strings.ReplaceAll(key, ".", "_"))
}

// discoverSecretsFile returns <PREFIX>_SECRETS_FILE when set, otherwise a
// secrets file with the config file's extension next to it, if present.
func (l *ViperLoader) discoverSecretsFile() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv(strings.ToUpper(l.envPrefix) + "_SECRETS_FILE")); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("secrets file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if l.configFile == "" {
		return "", nil
	}
	candidate := filepath.Join(filepath.Dir(l.configFile), "secrets"+filepath.Ext(l.configFile))
	if candidate == l.configFile {
		return "", nil
	}
	if _, err := os.Stat(candidate); err != nil {
		return "", nil
	}
	return candidate, nil
}

func (c *Config) normalize() {
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	c.HTTP.Router = strings.ToLower(strings.TrimSpace(c.HTTP.Router))
	c.RateLimit.Type = strings.ToLower(strings.TrimSpace(c.RateLimit.Type))
	c.CORS.AllowOrigins = normalizeStringSlice(c.CORS.AllowOrigins)
	c.SecurityHeaders.AllowedHosts = normalizeStringSlice(c.SecurityHeaders.AllowedHosts)
}

// configKeys lists the dotted mapstructure key of every leaf field.
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := prefix + fieldKey(field)
		if field.Type.Kind() == reflect.Struct {
			keys = append(keys, configKeys(field.Type, key+".")...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func flatten(v reflect.Value, prefix string) map[string]interface{} {
	out := map[string]interface{}{}
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		key := prefix + fieldKey(field)
		if field.Type.Kind() == reflect.Struct {
			for k, val := range flatten(v.Field(i), key+".") {
				out[k] = val
			}
			continue
		}
		out[key] = v.Field(i).Interface()
	}
	return out
}

func fieldKey(field reflect.StructField) string {
	if tag := field.Tag.Get("mapstructure"); tag != "" && tag != "-" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(field.Name)
}

func normalizeStringSlice(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
