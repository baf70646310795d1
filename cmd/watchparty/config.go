package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type profile struct {
	Bench  benchProfile   `yaml:"bench"`
	Stress []stressConfig `yaml:"stress"`
}

type benchProfile struct {
	Widths     []int `yaml:"widths"`
	Heights    []int `yaml:"heights"`
	Iterations int   `yaml:"iterations"`
	// Sync makes the leaf watchers run inline instead of through the
	// scheduler queue.
	Sync bool `yaml:"sync"`
}

type stressConfig struct {
	Name           string  `yaml:"name"`
	Width          int     `yaml:"width"`
	Layers         int     `yaml:"layers"`
	StaticFraction float64 `yaml:"staticFraction"`
	Sources        int     `yaml:"sources"`
	ReadFraction   float64 `yaml:"readFraction"`
	Iterations     int     `yaml:"iterations"`
}

func defaultProfile() *profile {
	return &profile{
		Bench: benchProfile{
			Widths:     []int{1, 10, 100},
			Heights:    []int{1, 10, 100},
			Iterations: 100,
		},
		Stress: []stressConfig{
			{
				Name:           "simple component",
				Width:          10,
				Layers:         5,
				StaticFraction: 1,
				Sources:        2,
				ReadFraction:   0.2,
				Iterations:     60000,
			},
			{
				Name:           "dynamic component",
				Width:          10,
				Layers:         10,
				StaticFraction: 0.75,
				Sources:        6,
				ReadFraction:   0.2,
				Iterations:     15000,
			},
			{
				Name:           "wide dense",
				Width:          1000,
				Layers:         5,
				StaticFraction: 1,
				Sources:        25,
				ReadFraction:   1,
				Iterations:     300,
			},
			{
				Name:           "very dynamic",
				Width:          100,
				Layers:         15,
				StaticFraction: 0.5,
				Sources:        6,
				ReadFraction:   1,
				Iterations:     2000,
			},
		},
	}
}

// loadProfile reads a YAML profile. Missing sections keep their defaults.
func loadProfile(path string) (*profile, error) {
	p := defaultProfile()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read profile")
	}
	if err := yaml.Unmarshal(b, p); err != nil {
		return nil, errors.Wrapf(err, "parse profile %s", path)
	}
	if p.Bench.Iterations <= 0 {
		return nil, errors.Errorf("profile %s: bench iterations must be positive", path)
	}
	for _, s := range p.Stress {
		if s.Width <= 0 || s.Layers < 2 || s.Sources <= 0 {
			return nil, errors.Errorf("profile %s: stress %q needs width > 0, layers > 1 and sources > 0", path, s.Name)
		}
	}
	return p, nil
}
