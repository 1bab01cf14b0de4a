package config

import (
	"reflect"
	"strings"
)

// GetSettingsExample uses reflection to generate example settings
// This automatically stays in sync when new fields are added to Settings
func GetSettingsExample() map[string]any {
	var s Settings
	t := reflect.TypeOf(s)
	example := make(map[string]any)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" {
			continue
		}

		// Extract the JSON field name (before comma)
		jsonName := strings.Split(jsonTag, ",")[0]
		example[jsonName] = generateExampleValue(field.Type, jsonName)
	}

	return example
}

// generateExampleValue creates appropriate example values based on type and field name
func generateExampleValue(t reflect.Type, fieldName string) any {
	if t.Kind() == reflect.Ptr {
		switch t.Elem().Kind() {
		case reflect.Bool:
			return fieldName == "debug"
		case reflect.Int:
			switch fieldName {
			case "max_log_files":
				return 1000
			case "poll_interval_ms":
				return DefaultPollIntervalMs
			case "session_ttl_hours":
				return int(DefaultSessionTTL.Hours())
			}
			return 10
		}
	}

	if t.Kind() == reflect.String {
		switch fieldName {
		case "api_url":
			return DefaultAPIURL
		case "default_style":
			return "watercolor"
		case "redis_addr":
			return "localhost:6379"
		case "store":
			return DefaultStore
		default:
			return "example"
		}
	}

	return nil
}
