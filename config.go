package notedb

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config configures a database instance. Only Paths[0] is used at the
// moment; further paths are reserved for tiering.
type Config struct {
	// Paths contains data directories.
	Paths []string `yaml:"paths"`
	// MinimumFreeGB refuses to open the store below this free-space
	// threshold. Zero disables the check.
	MinimumFreeGB uint64 `yaml:"minimum_free_gb"`
	// GCIntervalMinutes is the value-log garbage collection interval
	// in minutes. Zero means 10.
	GCIntervalMinutes uint `yaml:"gc_interval_minutes"`
	// Logger is an optional structured logger. If nil, a stderr
	// logger at info level is used.
	Logger *logrus.Logger `yaml:"-"`
	// Verifier checks notes before ingest. If nil, only structural
	// shape is checked.
	Verifier Verifier `yaml:"-"`
}

func (c *Config) check() error {
	if len(c.Paths) == 0 || c.Paths[0] == "" {
		return errors.New("notedb: config has no data path")
	}

	return nil
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("notedb: reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("notedb: parsing config %s: %w", path, err)
	}

	return cfg, nil
}

func defaultLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)

	return log
}
