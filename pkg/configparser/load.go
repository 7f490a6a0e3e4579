package configparser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadYamlFile reads a YAML file and loads its leaves into the environment.
// Nested keys are joined with "_" and upper-cased: transport.url → TRANSPORT_URL.
// Values of the form ${VAR:-default} are resolved against the environment.
// Variables that are already set are never overwritten.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	vars := make(map[string]string)
	flatten(nil, root, vars)

	for key, value := range vars {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}

	return nil
}

func flatten(prefix []string, node map[string]any, out map[string]string) {
	for key, value := range node {
		path := append(append([]string{}, prefix...), key)

		switch v := value.(type) {
		case map[string]any:
			flatten(path, v, out)
		case nil:
			// "key:" with no value is a section header, nothing to export
		default:
			out[strings.ToUpper(strings.Join(path, "_"))] = substitute(fmt.Sprint(v))
		}
	}
}

// substitute handles the ${VAR:-default} syntax.
func substitute(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}

	inner := value[2 : len(value)-1]
	name, def, found := strings.Cut(inner, ":-")
	if envValue := os.Getenv(strings.TrimSpace(name)); envValue != "" {
		return envValue
	}
	if found {
		return strings.TrimSpace(def)
	}
	return ""
}
