package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mfridman/interpolate"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = "dbmigration.json"
	defaultEnvFile    = ".env"

	envDatabaseURL = "DBMIGRATION_URL"
	envConfig      = "DBMIGRATION_CONFIG"
	envTable       = "DBMIGRATION_TABLE"
)

var _ interpolate.Env = env(nil)

// config is the content of a dbmigration.json (or .yaml) file.
type config struct {
	DatabaseURL string            `json:"database_url" yaml:"database_url"`
	ChangeSets  []changeSetConfig `json:"changesets" yaml:"changesets"`
}

type changeSetConfig struct {
	GroupName string `json:"group_name" yaml:"group_name"`
	// Directory is relative to the config file unless absolute.
	Directory string `json:"directory" yaml:"directory"`
}

// group returns the change-set config of the named group.
func (c *config) group(name string) (changeSetConfig, error) {
	for _, cs := range c.ChangeSets {
		if cs.GroupName == name {
			return cs, nil
		}
	}
	return changeSetConfig{}, fmt.Errorf("group %q not found in config", name)
}

// groups returns every configured group, or only the named one when filter is not empty.
func (c *config) groups(filter string) ([]changeSetConfig, error) {
	if filter == "" {
		return c.ChangeSets, nil
	}
	cs, err := c.group(filter)
	if err != nil {
		return nil, err
	}
	return []changeSetConfig{cs}, nil
}

// loadConfig reads the config file at path and resolves its directories against the file's
// location. A missing file is only an error when required is set; otherwise an empty config is
// returned.
func loadConfig(path string, required bool) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return &config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: must be .json, .yaml or .yml", ext)
	}
	base := filepath.Dir(path)
	seen := make(map[string]bool, len(cfg.ChangeSets))
	for i, cs := range cfg.ChangeSets {
		if cs.GroupName == "" {
			return nil, fmt.Errorf("%s: changesets[%d]: group_name must not be empty", path, i)
		}
		if cs.Directory == "" {
			return nil, fmt.Errorf("%s: group %q: directory must not be empty", path, cs.GroupName)
		}
		if seen[cs.GroupName] {
			return nil, fmt.Errorf("%s: duplicate group %q", path, cs.GroupName)
		}
		seen[cs.GroupName] = true
		if !filepath.IsAbs(cs.Directory) {
			cfg.ChangeSets[i].Directory = filepath.Join(base, cs.Directory)
		}
	}
	return &cfg, nil
}

// loadEnvFile merges the variables of a .env file into e. With "none" nothing is loaded. A missing
// file is only an error when it was asked for explicitly.
func loadEnvFile(e env, path string, explicit bool) error {
	if path == "none" {
		return nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	e.merge(values)
	return nil
}

// resolveDatabaseURL picks the database URL by precedence flag, environment, config file and
// expands ${VAR} references against the environment.
func resolveDatabaseURL(flagValue string, e env, cfg *config) (string, error) {
	raw := flagValue
	if raw == "" {
		raw, _ = e.Get(envDatabaseURL)
	}
	if raw == "" {
		raw = cfg.DatabaseURL
	}
	if raw == "" {
		return "", fmt.Errorf("database URL is required: set --url, %s or database_url in the config file", envDatabaseURL)
	}
	expanded, err := interpolate.Interpolate(e, raw)
	if err != nil {
		return "", fmt.Errorf("failed to expand database URL: %w", err)
	}
	return expanded, nil
}
