package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Data struct {
		Path string `yaml:"path"`
		// Rows dated on/before this year-month are dropped at load time
		CutoffYear     int      `yaml:"cutoff_year"`
		CutoffMonth    int      `yaml:"cutoff_month"`
		PrunedColumns  []string `yaml:"pruned_columns"`
		ReloadSchedule string   `yaml:"reload_schedule"` // cron spec, empty disables
	} `yaml:"data"`
	Server struct {
		Port            int      `yaml:"port"`
		ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
		WriteTimeoutSec int      `yaml:"write_timeout_sec"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		DevMode         bool     `yaml:"dev_mode"`
	} `yaml:"server"`
	Reports struct {
		// Dated CSV exports are written under Dir when Schedule is set
		Dir      string `yaml:"dir"`
		Schedule string `yaml:"schedule"`
	} `yaml:"reports"`
	Query struct {
		// Gross level queries with no date/exchange/segment filter return
		// ErrFilterRequired unless this is set
		AllowUnfiltered bool `yaml:"allow_unfiltered"`
	} `yaml:"query"`
}

// DefaultPrunedColumns are source columns the analytics never read
var DefaultPrunedColumns = []string{"RRRValue", "CallType", "Attachment", "ImageURL", "SendTo", "CallClosedBy", "CallClosedDT"}

func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Data.Path == "" {
		c.Data.Path = "data/StructureCallEntries.csv"
	}
	if c.Data.CutoffYear == 0 {
		c.Data.CutoffYear = 2024
	}
	if c.Data.CutoffMonth == 0 {
		c.Data.CutoffMonth = 11
	}
	if c.Data.PrunedColumns == nil {
		c.Data.PrunedColumns = DefaultPrunedColumns
	}
	if c.Server.Port == 0 {
		c.Server.Port = 10000
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 30
	}
	if c.Reports.Dir == "" {
		c.Reports.Dir = "reports"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
}

// applyEnv lets deployments override the data file and port without editing yaml
func (c *Config) applyEnv() {
	if v := os.Getenv("MIS_DATA_PATH"); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv("MIS_RELOAD_SCHEDULE"); v != "" {
		c.Data.ReloadSchedule = v
	}
	if v := os.Getenv("MIS_REPORTS_DIR"); v != "" {
		c.Reports.Dir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return errors.New("data.path cannot be empty")
	}
	if c.Data.CutoffMonth < 1 || c.Data.CutoffMonth > 12 {
		return fmt.Errorf("data.cutoff_month must be between 1-12, got %d", c.Data.CutoffMonth)
	}
	for key, spec := range map[string]string{"data.reload_schedule": c.Data.ReloadSchedule, "reports.schedule": c.Reports.Schedule} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1-65535, got %d", c.Server.Port)
	}
	return nil
}

// LoadConfig reads the yaml file at path. A missing file is not an error:
// defaults plus environment overrides are used instead.
func LoadConfig(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
