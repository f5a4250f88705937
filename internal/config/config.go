package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// PanelConfig selects the panel variant and its per-board options.
type PanelConfig struct {
	// Compatible is the variant match string, e.g. "easy_quick,er88577b".
	Compatible string `yaml:"compatible" json:"compatible"`

	// BSIT enables the controller's built-in self test pattern.
	BSIT bool `yaml:"bsit" json:"bsit"`

	// Debug dumps status registers in LP and HS mode after bring-up.
	Debug bool `yaml:"debug" json:"debug"`

	// Rotation is the mounting rotation in degrees (0, 90, 180, 270).
	// Unset means unknown orientation.
	Rotation *int `yaml:"rotation,omitempty" json:"rotation,omitempty"`

	// Delays overrides the variant's settle delays, in milliseconds, keyed
	// by name (power_on, reset_recovery, power_off, ...).
	Delays map[string]int `yaml:"delays,omitempty" json:"delays,omitempty"`
}

// TransportConfig describes how the panel controller is reached.
type TransportConfig struct {
	// SPIPort is the periph.io SPI port name ("" for the first port).
	SPIPort string `yaml:"spi_port" json:"spi_port"`
	// MaxHz is the clock used in low-power mode.
	MaxHz int64 `yaml:"max_hz" json:"max_hz"`
	// HSPort and HSMaxHz, when set, add a second link used in high-speed mode.
	HSPort  string `yaml:"hs_port,omitempty" json:"hs_port,omitempty"`
	HSMaxHz int64  `yaml:"hs_max_hz,omitempty" json:"hs_max_hz,omitempty"`
	// DCPin is the data/command select GPIO name.
	DCPin string `yaml:"dc_pin" json:"dc_pin"`
}

// GPIOConfig names the control lines, using periph.io pin names
// (e.g. "GPIO23").
type GPIOConfig struct {
	// Reset is optional.
	Reset           string `yaml:"reset" json:"reset"`
	ResetActiveHigh bool   `yaml:"reset_active_high" json:"reset_active_high"`
	// Power is the enable input of the panel supply switch.
	Power          string `yaml:"power" json:"power"`
	PowerActiveLow bool   `yaml:"power_active_low" json:"power_active_low"`
}

// DiagnosticsConfig controls periodic register dumps.
type DiagnosticsConfig struct {
	// Schedule is a cron expression (e.g. "*/10 * * * *"). Empty disables.
	Schedule string `yaml:"schedule" json:"schedule"`
}

// SupplyConfig describes the optional I2C monitor on the panel rail.
type SupplyConfig struct {
	// I2CBus is the periph.io I2C bus name ("" for the first bus).
	I2CBus string `yaml:"i2c_bus" json:"i2c_bus"`
	// Addr is the 7-bit monitor address. Zero disables the monitor.
	Addr uint16 `yaml:"addr" json:"addr"`
	// MinMv is the lowest acceptable rail voltage after power on.
	MinMv int `yaml:"min_mv" json:"min_mv"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API. Empty disables HTTP.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Panel       PanelConfig       `yaml:"panel" json:"panel"`
	Transport   TransportConfig   `yaml:"transport" json:"transport"`
	GPIO        GPIOConfig        `yaml:"gpio" json:"gpio"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" json:"diagnostics"`
	Supply      SupplyConfig      `yaml:"supply" json:"supply"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultCompatible = "easy_quick,er88577b"
	defaultMaxHz      = 10_000_000
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		LogLevel: "info",
		Panel: PanelConfig{
			Compatible: defaultCompatible,
		},
		Transport: TransportConfig{
			MaxHz: defaultMaxHz,
			DCPin: "GPIO25",
		},
		GPIO: GPIOConfig{
			Reset: "GPIO23",
			Power: "GPIO24",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Panel.Compatible = strings.TrimSpace(c.Panel.Compatible)
	if c.Panel.Compatible == "" {
		c.Panel.Compatible = defaultCompatible
	}
	if c.Transport.MaxHz <= 0 {
		c.Transport.MaxHz = defaultMaxHz
	}
	if c.Transport.HSPort != "" && c.Transport.HSMaxHz <= 0 {
		c.Transport.HSMaxHz = c.Transport.MaxHz
	}
	c.Diagnostics.Schedule = strings.TrimSpace(c.Diagnostics.Schedule)
}

// Validate reports problems that make the panel impossible to attach.
func (c *Config) Validate() error {
	var problems []string
	if c.GPIO.Power == "" {
		problems = append(problems, "gpio.power is required")
	}
	if c.Transport.DCPin == "" {
		problems = append(problems, "transport.dc_pin is required")
	}
	if r := c.Panel.Rotation; r != nil && *r != 0 && *r != 90 && *r != 180 && *r != 270 {
		problems = append(problems, fmt.Sprintf("panel.rotation %d is not 0, 90, 180 or 270", *r))
	}
	for name, ms := range c.Panel.Delays {
		if ms < 0 {
			problems = append(problems, fmt.Sprintf("panel.delays.%s is negative", name))
		}
	}
	if c.Supply.Addr > 0x7f {
		problems = append(problems, fmt.Sprintf("supply.addr 0x%x is not a 7-bit address", c.Supply.Addr))
	}
	if c.Supply.MinMv < 0 {
		problems = append(problems, "supply.min_mv is negative")
	}
	if c.Diagnostics.Schedule != "" {
		if _, err := cron.ParseStandard(c.Diagnostics.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("diagnostics.schedule: %v", err))
		}
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".panelctl-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
