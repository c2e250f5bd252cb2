package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	server "nock-and-loose/server"
)

// Config is the YAML-loaded static configuration of the server process.
type Config struct {
	Addr            string                `yaml:"addr"`
	AmmoPerPlayer   int                   `yaml:"ammo_per_player"`
	MaxShotDistance float64               `yaml:"max_shot_distance"`
	StandSpacing    float64               `yaml:"stand_spacing"`
	AllowedOrigins  []string              `yaml:"allowed_origins"`
	AdminToken      string                `yaml:"admin_token"`
	Scoring         *server.ScoringTable  `yaml:"scoring"`
	Logging         LoggingConfig         `yaml:"logging"`
	Archive         ArchiveConfig         `yaml:"archive"`
}

// LoggingConfig selects sinks and verbosity.
type LoggingConfig struct {
	Sinks       []string `yaml:"sinks"`
	MinSeverity string   `yaml:"min_severity"`
	JSONPath    string   `yaml:"json_path"`
}

// ArchiveConfig locates the optional Redis result stream. An empty addr
// disables archiving.
type ArchiveConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

// DefaultConfig returns the values used when no file overrides them.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		AmmoPerPlayer: 5,
		Logging: LoggingConfig{
			Sinks:       []string{"console"},
			MinSeverity: "info",
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults. A missing
// file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv lets deployment environments override the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("NOCK_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("NOCK_ADMIN_TOKEN"); v != "" {
		c.AdminToken = v
	}
	if v := os.Getenv("NOCK_ARCHIVE_ADDR"); v != "" {
		c.Archive.Addr = v
	}
}
