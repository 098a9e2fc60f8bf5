package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const initHeader = `# Launcher configuration. Every field is optional; omitted fields keep the
# built-in defaults shown here. Durations use Go syntax (300ms, 5s, 1m).
`

// Init writes a launcher.yaml populated with the defaults into dir.
func Init(dir string, force bool) (string, error) {
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	var buf bytes.Buffer
	buf.WriteString(initHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default(dir)); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	// #nosec G306 -- configuration file is meant to be readable by the user
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
