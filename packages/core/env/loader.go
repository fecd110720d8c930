package env

import (
	"os"
	"strings"
)

// LoadEnvironment returns the variables configured for envName, or an
// empty map when the environment is not configured.
func LoadEnvironment(envName string, configEnvs map[string]map[string]string) map[string]string {
	result := make(map[string]string)
	if vars, ok := configEnvs[envName]; ok {
		for k, v := range vars {
			result[k] = v
		}
	}
	return result
}

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns the OS environment variables starting with prefix,
// with the prefix stripped. An empty prefix returns nothing, so the whole
// environment never leaks into a run by accident.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	if prefix == "" {
		return result
	}
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok || len(key) <= len(prefix) || !strings.HasPrefix(key, prefix) {
			continue
		}
		result[strings.ToLower(key[len(prefix):])] = value
	}
	return result
}
