package envconfig

import (
	"os"
	"strconv"
	"strings"
)

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

// Debug is set via OLLAMA_DEBUG in the environment
func Debug() bool {
	if debug := clean("OLLAMA_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err != nil {
			return true
		}
		return d
	}

	return false
}

// Models is set via OLLAMA_MODELS in the environment and overrides the
// default model store location
func Models() string {
	return clean("OLLAMA_MODELS")
}

// ExportDir is set via OLLAMA_EXPORT_DIR in the environment and
// overrides the default output directory
func ExportDir() string {
	return clean("OLLAMA_EXPORT_DIR")
}

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"OLLAMA_DEBUG":      {"OLLAMA_DEBUG", Debug(), "Show additional debug information (e.g. OLLAMA_DEBUG=1)"},
		"OLLAMA_MODELS":     {"OLLAMA_MODELS", Models(), "The path to the models directory"},
		"OLLAMA_EXPORT_DIR": {"OLLAMA_EXPORT_DIR", ExportDir(), "The default export output directory"},
	}
}
