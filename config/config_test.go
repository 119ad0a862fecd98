package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Habitat.Width != 128 || cfg.Habitat.Height != 128 {
		t.Errorf("habitat = %+v", cfg.Habitat)
	}
	if cfg.Derived.Capacity != 128*128 {
		t.Errorf("capacity = %d", cfg.Derived.Capacity)
	}
	if cfg.Derived.MaxPopulation != cfg.Derived.Capacity {
		t.Errorf("max population = %d, want capacity", cfg.Derived.MaxPopulation)
	}
	if cfg.Derived.Target != cfg.Population.Initial {
		t.Errorf("target = %d, want %d", cfg.Derived.Target, cfg.Population.Initial)
	}
	if cfg.Derived.PaletteSeed == cfg.Run.Seed {
		t.Error("palette seed should differ from the simulation seed")
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	overlay := "habitat:\n  width: 10\n  height: 8\npopulation:\n  initial: 20\n  max: 30\nselection:\n  portion: 2.0\n"
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Habitat.Width != 10 || cfg.Habitat.Height != 8 {
		t.Errorf("habitat = %+v", cfg.Habitat)
	}
	// Untouched keys keep their defaults.
	if cfg.Epoch.Steps != 300 {
		t.Errorf("epoch.steps = %d", cfg.Epoch.Steps)
	}
	// 20 * 2.0 = 40, clamped to max 30.
	if cfg.Derived.Target != 30 {
		t.Errorf("target = %d, want 30", cfg.Derived.Target)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Habitat.Width = 0 }, "habitat"},
		{"overfull", func(c *Config) { c.Habitat.Width, c.Habitat.Height = 4, 4; c.Population.Initial = 17 }, "exceeds habitat capacity"},
		{"steps", func(c *Config) { c.Epoch.Steps = 0 }, "epoch.steps"},
		{"zone", func(c *Config) { c.Selection.Zone = "moon" }, "selection.zone"},
		{"portion", func(c *Config) { c.Selection.Portion = 0 }, "selection.portion"},
		{"archive", func(c *Config) { c.Archive.Enabled = true; c.Archive.Path = "" }, "archive.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestWriteYAMLReloads(t *testing.T) {
	cfg := Default()
	cfg.Run.Seed = 77
	cfg.Selection.Zone = "border"
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Run.Seed != 77 || back.Selection.Zone != "border" {
		t.Errorf("reloaded run=%+v selection=%+v", back.Run, back.Selection)
	}
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	global = nil
	defer func() {
		global = saved
		if recover() == nil {
			t.Error("Cfg did not panic")
		}
	}()
	Cfg()
}
