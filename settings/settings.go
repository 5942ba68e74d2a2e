// Package settings reads the service's configuration file. Everything has
// a default, so a missing file just means the defaults.
package settings

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	TypeCheck   bool     `yaml:"typecheck"`    // run the static pass before executing
	DeadlineMs  int64    `yaml:"deadline_ms"`  // deadline for host and core calls
	View        string   `yaml:"view"`         // "plain" or "vara"
	ModuleRoots []string `yaml:"module_roots"` // directories searched by the source loader
}

func Default() Settings {
	return Settings{
		TypeCheck:  true,
		DeadlineMs: 5000,
		View:       "plain",
	}
}

// Load reads a YAML settings file over the defaults. A missing file is
// not an error; a malformed one is.
func Load(path string) (Settings, error) {
	settings := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}
