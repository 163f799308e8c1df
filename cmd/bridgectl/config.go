package main

import (
	"fmt"
	"os"

	"github.com/guseggert/procbridge/bridge"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// workerConfig describes how to spawn the worker. It can come from a YAML
// file, from flags, or both, with flags winning.
type workerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	Dir     string   `yaml:"dir"`

	Container containerConfig `yaml:"container"`
}

type containerConfig struct {
	Image  string   `yaml:"image"`
	Mounts []string `yaml:"mounts"`
}

func loadConfig(ctx *cli.Context) (*workerConfig, error) {
	cfg := &workerConfig{}
	if path := ctx.String("config"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}
	if v := ctx.String("worker"); v != "" {
		cfg.Command = v
	}
	if v := ctx.StringSlice("arg"); len(v) > 0 {
		cfg.Args = v
	}
	if v := ctx.StringSlice("env"); len(v) > 0 {
		cfg.Env = v
	}
	if v := ctx.String("dir"); v != "" {
		cfg.Dir = v
	}
	if cfg.Command == "" && cfg.Container.Image == "" {
		return nil, fmt.Errorf("no worker command given; use --worker or a config file")
	}
	return cfg, nil
}

func (c *workerConfig) launcher() bridge.Launcher {
	if c.Container.Image != "" {
		cmd := []string{}
		if c.Command != "" {
			cmd = append([]string{c.Command}, c.Args...)
		}
		return &bridge.ContainerLauncher{
			Image:   c.Container.Image,
			Command: cmd,
			Env:     c.Env,
			Mounts:  c.Container.Mounts,
		}
	}
	return &bridge.ExecLauncher{
		Command: c.Command,
		Args:    c.Args,
		Env:     c.Env,
		Dir:     c.Dir,
	}
}
