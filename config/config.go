// Package config holds the import settings, read from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/milk9111/omiloader/spawn"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDownloadTimeout = 30 * time.Second
	DefaultIterations      = 20
	DefaultSampleRate      = 44100
)

type Settings struct {
	DownloadTimeout      time.Duration `yaml:"download_timeout"`
	PhysicsIterations    int           `yaml:"physics_iterations"`
	SpawnMode            string        `yaml:"spawn_mode"`
	DisabledExtensions   []string      `yaml:"disabled_extensions"`
	AudioSampleRate      int           `yaml:"audio_sample_rate"`
	LogUnknownExtensions bool          `yaml:"log_unknown_extensions"`
}

func Default() Settings {
	return Settings{
		DownloadTimeout:      DefaultDownloadTimeout,
		PhysicsIterations:    DefaultIterations,
		SpawnMode:            spawn.First.String(),
		AudioSampleRate:      DefaultSampleRate,
		LogUnknownExtensions: true,
	}
}

// Load reads settings from filename. A missing file yields the defaults.
func Load(filename string) (Settings, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("config: load %s: %w", filename, err)
	}
	s, err := Decode(data)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %s: %w", filename, err)
	}
	return s, nil
}

// Decode overlays the YAML document on the defaults.
func Decode(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if s.DownloadTimeout < 0 {
		return fmt.Errorf("config: download_timeout must not be negative, got %s", s.DownloadTimeout)
	}
	if s.PhysicsIterations < 0 {
		return fmt.Errorf("config: physics_iterations must not be negative, got %d", s.PhysicsIterations)
	}
	if s.AudioSampleRate < 0 {
		return fmt.Errorf("config: audio_sample_rate must not be negative, got %d", s.AudioSampleRate)
	}
	if _, err := spawn.ParseMode(s.SpawnMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (s Settings) Mode() spawn.Mode {
	m, _ := spawn.ParseMode(s.SpawnMode)
	return m
}

// Disabled reports whether an extension is switched off.
func (s Settings) Disabled(extension string) bool {
	for _, d := range s.DisabledExtensions {
		if strings.EqualFold(d, extension) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	out := s
	out.DisabledExtensions = append([]string(nil), s.DisabledExtensions...)
	return out
}
