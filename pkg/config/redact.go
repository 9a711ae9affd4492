package config

import (
	"fmt"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"
)

const redactedValue = "***"

// RedactedSettings returns the configuration as nested maps keyed by the
// configuration keys. Non-empty secret fields are masked.
func (c *Config) RedactedSettings() map[string]interface{} {
	return settingsOf(reflect.ValueOf(c).Elem())
}

// Redacted renders RedactedSettings as YAML.
func (c *Config) Redacted() (string, error) {
	out, err := yaml.Marshal(c.RedactedSettings())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}

func settingsOf(v reflect.Value) map[string]interface{} {
	t := v.Type()
	out := make(map[string]interface{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)
		key := fieldKey(field)

		switch {
		case value.Kind() == reflect.Struct:
			out[key] = settingsOf(value)
		case field.Tag.Get("redact") == "true":
			if value.IsZero() {
				out[key] = ""
			} else {
				out[key] = redactedValue
			}
		case field.Type == reflect.TypeOf(time.Duration(0)):
			out[key] = value.Interface().(time.Duration).String()
		default:
			out[key] = value.Interface()
		}
	}
	return out
}
