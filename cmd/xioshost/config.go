// Config loading for xioshost. The boot-time policy spec.md leaves to
// "the bootloader" (terminal count, which shell program each terminal
// starts, the PIT tick rate, where the filesystem image and shell
// binaries live) is read from a YAML file here, the same
// textual-config-file role the teacher's own config handling plays
// for its emulator (video/audio backend selection, window size).
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BootConfig is the on-disk shape of xioshost's config file.
type BootConfig struct {
	NumTerminals int      `yaml:"num_terminals"`
	Shells       []string `yaml:"shells"`
	TickHz       uint32   `yaml:"tick_hz"`
	FSImage      string   `yaml:"fs_image"`
	Audio        string   `yaml:"audio"` // "oto" or "none"
	Video        string   `yaml:"video"` // "gui" or "headless"
}

func defaultConfig() BootConfig {
	return BootConfig{
		NumTerminals: 3,
		Shells:       []string{"shell", "shell", "shell"},
		TickHz:       100,
		FSImage:      "fsimage.bin",
		Audio:        "oto",
		Video:        "gui",
	}
}

// loadConfig reads path if non-empty, overlaying it onto the defaults;
// a missing path is not an error, mirroring how the real boot
// sequence tolerates module 0 being absent (spec.md §6).
func loadConfig(path string) (BootConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("xioshost: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("xioshost: parse config %s: %w", path, err)
	}
	return cfg, nil
}
