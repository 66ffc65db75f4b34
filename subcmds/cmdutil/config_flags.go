// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/supplybot/config"
)

type ConfigFlags struct {
	path string
}

func (cf *ConfigFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&cf.path, "config", "", "path to the config file (default=supplybot.yaml or SUPPLYBOT_CONFIG value)")
}

// ConfigPath returns the absolute path to the config file.
func (cf *ConfigFlags) ConfigPath() (string, error) {
	p := cf.path
	if len(p) == 0 {
		p = os.Getenv("SUPPLYBOT_CONFIG")
	}
	if len(p) == 0 {
		p = config.DefaultPath
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("could not determine config file %q absolute path: %w", p, err)
	}
	return abs, nil
}

// LoadConfig loads the config file, creating it with the defaults when it
// doesn't exist.
func (cf *ConfigFlags) LoadConfig() (*config.Config, string, error) {
	p, err := cf.ConfigPath()
	if err != nil {
		return nil, "", err
	}
	created, err := config.InitIfMissing(p)
	if err != nil {
		return nil, "", err
	}
	if created {
		fmt.Printf("Config file is initialized at %s\n", p)
	}
	c, err := config.Load(p)
	if err != nil {
		return nil, "", err
	}
	return c, p, nil
}
