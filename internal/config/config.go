// Package config handles niftool configuration loading and management.
package config

// Config holds all settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Model   ModelConfig   `yaml:"model"`
	Physics PhysicsConfig `yaml:"physics"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig lists where model files are looked up. Later entries win when
// the same path exists in several places.
type DataConfig struct {
	Dirs     []string `yaml:"dirs"`     // loose file directories
	Archives []string `yaml:"archives"` // BSA archives
}

// ModelConfig holds model building settings.
type ModelConfig struct {
	SkeletonRoots       []string `yaml:"skeleton_roots"` // skeleton root marker names
	IncludeHidden       bool     `yaml:"include_hidden"`
	IncludeEditorMarker bool     `yaml:"include_editor_markers"`
	SkinTexture         string   `yaml:"skin_texture"` // override for single sub-mesh models
}

// PhysicsConfig holds collision building settings.
type PhysicsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CacheConfig holds model cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dirs: []string{"Data Files"},
		},
		Model: ModelConfig{
			SkeletonRoots: []string{"Bip01"},
		},
		Physics: PhysicsConfig{
			Enabled: true,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
