package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/aide-ai/aide/errors"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written either as Go
// duration strings ("30s", "250ms") or as plain millisecond counts.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return errors.Wrapf(perr, "invalid duration %q", s)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms int64
	if err := value.Decode(&ms); err != nil {
		return errors.New("duration must be a string like \"30s\" or a millisecond count")
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

type Config struct {
	ServerURL            string   `yaml:"server_url"`
	HandshakeTimeout     Duration `yaml:"handshake_timeout"`
	PingInterval         Duration `yaml:"ping_interval"`
	ReconnectDelay       Duration `yaml:"reconnect_delay"`
	MaxReconnectAttempts int      `yaml:"max_reconnect_attempts"`
	GenerationTimeout    Duration `yaml:"generation_timeout"`
	StatusRecheckDelay   Duration `yaml:"status_recheck_delay"`
	DefaultProjectName   string   `yaml:"default_project_name"`
	LogLevel             string   `yaml:"log_level"`
}

// Default returns the configuration used when no config file overrides it.
// The reconnect delay is the base of the linear backoff: attempt n waits
// n times this value.
func Default() *Config {
	return &Config{
		ServerURL:            "ws://localhost:8765/ws",
		HandshakeTimeout:     Duration(10 * time.Second),
		PingInterval:         Duration(30 * time.Second),
		ReconnectDelay:       Duration(2 * time.Second),
		MaxReconnectAttempts: 5,
		GenerationTimeout:    Duration(4 * time.Minute),
		StatusRecheckDelay:   Duration(1 * time.Second),
		DefaultProjectName:   "Untitled Project",
		LogLevel:             "info",
	}
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence. Missing
// config files are not an error; defaults fill everything else.
func LoadConfig() (*Config, error) {
	cfg := Default()

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".aide", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".aide", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Note: Unmarshal will overwrite fields present in the YAML. This provides
	// a simple merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}
