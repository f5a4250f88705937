package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Panel.Compatible != "easy_quick,er88577b" {
		t.Errorf("Panel.Compatible = %q", cfg.Panel.Compatible)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("config perms = %v, want 0600", st.Mode().Perm())
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen: ":9090"
panel:
  compatible: " easy_quick_eqt700hky008p "
  bsit: true
  debug: true
  rotation: 90
  delays:
    power_off: 500
transport:
  dc_pin: GPIO5
  hs_port: "/dev/spidev0.1"
gpio:
  reset: GPIO6
  power: GPIO7
diagnostics:
  schedule: "*/5 * * * *"
supply:
  addr: 0x40
  min_mv: 3100
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Panel.Compatible != "easy_quick_eqt700hky008p" {
		t.Errorf("Panel.Compatible = %q, want trimmed", cfg.Panel.Compatible)
	}
	if !cfg.Panel.BSIT || !cfg.Panel.Debug {
		t.Errorf("Panel flags = %+v", cfg.Panel)
	}
	if cfg.Panel.Rotation == nil || *cfg.Panel.Rotation != 90 {
		t.Errorf("Panel.Rotation = %v, want 90", cfg.Panel.Rotation)
	}
	if cfg.Panel.Delays["power_off"] != 500 {
		t.Errorf("Panel.Delays = %v", cfg.Panel.Delays)
	}
	if cfg.Transport.MaxHz != defaultMaxHz || cfg.Transport.HSMaxHz != defaultMaxHz {
		t.Errorf("Transport = %+v, want default clocks", cfg.Transport)
	}
	if cfg.Supply.Addr != 0x40 || cfg.Supply.MinMv != 3100 {
		t.Errorf("Supply = %+v", cfg.Supply)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("panel: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() accepted malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	bad := 45
	tests := []struct {
		name string
		mod  func(*Config)
		want string
	}{
		{"no power", func(c *Config) { c.GPIO.Power = "" }, "gpio.power"},
		{"no dc", func(c *Config) { c.Transport.DCPin = "" }, "dc_pin"},
		{"rotation", func(c *Config) { c.Panel.Rotation = &bad }, "rotation 45"},
		{"negative delay", func(c *Config) { c.Panel.Delays = map[string]int{"power_on": -1} }, "power_on"},
		{"supply addr", func(c *Config) { c.Supply.Addr = 0x140 }, "supply.addr"},
		{"schedule", func(c *Config) { c.Diagnostics.Schedule = "every tuesday" }, "diagnostics.schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Panel.BSIT = true
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Panel.BSIT || got.BasicAuth == nil || got.BasicAuth.Username != "admin" {
		t.Errorf("reloaded config = %+v", got)
	}
}
