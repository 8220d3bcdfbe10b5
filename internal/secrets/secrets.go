// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials. Keys come from a
// directory of plain-text files (the filename is the key name, the
// trimmed contents the value), from a dotenv file, and from the process
// environment, in increasing order of precedence.
//
// Supported keys: semantic-scholar-api-key, openai-api-key, openalex-email.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key names understood by the pipeline.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	OpenAIAPIKey          = "openai-api-key"
	OpenAlexEmail         = "openalex-email"
)

// Known lists the keys looked up in dotenv files and the environment.
var Known = []string{SemanticScholarAPIKey, OpenAIAPIKey, OpenAlexEmail}

// EnvName returns the environment variable that carries key, e.g.
// SEMANTIC_SCHOLAR_API_KEY for semantic-scholar-api-key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on warn but do not abort.
func Load(dir string, warn io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if warn != nil {
				fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			}
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotenv reads the Known keys from a dotenv file, keyed by their
// secret name. A missing file yields an empty map.
func LoadDotenv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading dotenv file %s: %w", path, err)
	}
	out := make(map[string]string)
	for _, key := range Known {
		if v := strings.TrimSpace(vars[EnvName(key)]); v != "" {
			out[key] = v
		}
	}
	return out, nil
}

// Resolve merges the secrets directory, the dotenv file and the process
// environment. Later sources win.
func Resolve(dir, dotenvPath string, warn io.Writer) (map[string]string, error) {
	secrets, err := Load(dir, warn)
	if err != nil {
		return nil, err
	}
	env, err := LoadDotenv(dotenvPath)
	if err != nil {
		return nil, err
	}
	for k, v := range env {
		secrets[k] = v
	}
	for _, key := range Known {
		if v := strings.TrimSpace(os.Getenv(EnvName(key))); v != "" {
			secrets[key] = v
		}
	}
	return secrets, nil
}
