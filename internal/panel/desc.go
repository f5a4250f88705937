package panel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dsipanel/internal/dsi"
)

// Delays holds every settle time of one panel variant. A zero value skips
// the wait.
type Delays struct {
	// PowerOn is waited after the supply is enabled.
	PowerOn time.Duration
	// ResetSetup is waited before the reset pulse starts.
	ResetSetup time.Duration
	// ResetPulse is how long reset is held asserted.
	ResetPulse time.Duration
	// ResetRecovery is waited after reset is released, before the init table.
	ResetRecovery time.Duration
	ExitSleep     time.Duration
	DisplayOn     time.Duration

	BacklightOffToDisplayOff time.Duration
	DisplayOff               time.Duration
	EnterSleepToResetDown    time.Duration
	PowerOff                 time.Duration
}

// delayFields maps config names to fields.
func (d *Delays) delayFields() map[string]*time.Duration {
	return map[string]*time.Duration{
		"power_on":                     &d.PowerOn,
		"reset_setup":                  &d.ResetSetup,
		"reset_pulse":                  &d.ResetPulse,
		"reset_recovery":               &d.ResetRecovery,
		"exit_sleep":                   &d.ExitSleep,
		"display_on":                   &d.DisplayOn,
		"backlight_off_to_display_off": &d.BacklightOffToDisplayOff,
		"display_off":                  &d.DisplayOff,
		"enter_sleep_to_reset_down":    &d.EnterSleepToResetDown,
		"power_off":                    &d.PowerOff,
	}
}

// DelayNames lists the names accepted by Desc.WithDelays.
func DelayNames() []string {
	var d Delays
	names := make([]string, 0, 10)
	for n := range d.delayFields() {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Disable is the total time Disable can block.
func (d Delays) Disable() time.Duration {
	return d.BacklightOffToDisplayOff + d.DisplayOff + d.EnterSleepToResetDown
}

// Teardown is the worst-case blocking time of Disable followed by
// Unprepare.
func (d Delays) Teardown() time.Duration {
	return d.Disable() + d.PowerOff
}

// ModeType flags a display mode.
type ModeType uint8

const (
	ModeTypeDriver ModeType = 1 << iota
	ModeTypePreferred
)

// DisplayMode is the fixed video timing of a panel. Clock is in kHz.
type DisplayMode struct {
	Name  string   `json:"name"`
	Clock int      `json:"clock_khz"`
	Type  ModeType `json:"-"`

	HDisplay   int `json:"hdisplay"`
	HSyncStart int `json:"hsync_start"`
	HSyncEnd   int `json:"hsync_end"`
	HTotal     int `json:"htotal"`

	VDisplay   int `json:"vdisplay"`
	VSyncStart int `json:"vsync_start"`
	VSyncEnd   int `json:"vsync_end"`
	VTotal     int `json:"vtotal"`

	WidthMM  int `json:"width_mm"`
	HeightMM int `json:"height_mm"`
}

// VRefresh returns the refresh rate in Hz, rounded.
func (m DisplayMode) VRefresh() int {
	if m.HTotal == 0 || m.VTotal == 0 {
		return 0
	}
	num := m.Clock * 1000
	den := m.HTotal * m.VTotal
	return (num + den/2) / den
}

func (m DisplayMode) String() string {
	return fmt.Sprintf("%q: %d %d %d %d %d %d %d %d %d %d",
		m.Name, m.VRefresh(), m.Clock,
		m.HDisplay, m.HSyncStart, m.HSyncEnd, m.HTotal,
		m.VDisplay, m.VSyncStart, m.VSyncEnd, m.VTotal)
}

// porches builds a mode from active sizes and porch widths. A zero clock is
// derived from refresh.
type porches struct {
	hActive, hFront, hSync, hBack int
	vActive, vFront, vSync, vBack int
	refresh, clock                int
	widthMM, heightMM             int
}

func (p porches) mode() DisplayMode {
	m := DisplayMode{
		Clock:      p.clock,
		Type:       ModeTypeDriver | ModeTypePreferred,
		HDisplay:   p.hActive,
		HSyncStart: p.hActive + p.hFront,
		HSyncEnd:   p.hActive + p.hFront + p.hSync,
		HTotal:     p.hActive + p.hFront + p.hSync + p.hBack,
		VDisplay:   p.vActive,
		VSyncStart: p.vActive + p.vFront,
		VSyncEnd:   p.vActive + p.vFront + p.vSync,
		VTotal:     p.vActive + p.vFront + p.vSync + p.vBack,
		WidthMM:    p.widthMM,
		HeightMM:   p.heightMM,
	}
	if m.Clock == 0 {
		m.Clock = m.HTotal * m.VTotal * p.refresh / 1000
	}
	return m
}

// Desc is the static description of one panel variant: its timing, link
// parameters, ordered init table and settle delays. A Desc is read-only
// once registered; use WithDelays to derive a variant with other timings.
type Desc struct {
	Name       string
	Compatible string

	Mode      DisplayMode
	Lanes     int
	Format    dsi.PixelFormat
	ModeFlags dsi.ModeFlag

	// Init is executed in order during Prepare. Never reorder it.
	Init []Op
	// SelfTest is written after Init when built-in self test is enabled.
	SelfTest []byte
	// LP11BeforeReset sends a NOP before the reset pulse so the link is
	// driven to LP-11 first.
	LP11BeforeReset bool
	// Registers is the list read by the diagnostic dump.
	Registers []dsi.Register

	Delays Delays
}

// Validate checks what every registered table must hold.
func (d *Desc) Validate() error {
	var problems []string
	if d.Compatible == "" {
		problems = append(problems, "empty compatible")
	}
	if d.Lanes <= 0 || d.Lanes > 4 {
		problems = append(problems, fmt.Sprintf("lanes %d out of range 1..4", d.Lanes))
	}
	if d.Format.BitsPerPixel() == 0 {
		problems = append(problems, "unknown pixel format")
	}
	if d.Mode.HDisplay == 0 || d.Mode.VDisplay == 0 || d.Mode.Clock == 0 {
		problems = append(problems, "incomplete display mode")
	}
	for i, o := range d.Init {
		if o.kind == OpWrite && len(o.data) == 0 {
			problems = append(problems, fmt.Sprintf("init op %d is an empty write", i))
		}
	}
	for _, r := range d.Registers {
		if r.Len <= 0 {
			problems = append(problems, fmt.Sprintf("register 0x%02x has length %d", r.Cmd, r.Len))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrConfig, d.Compatible, strings.Join(problems, "; "))
	}
	return nil
}

// WithDelays returns a copy of d with the named delays replaced (values in
// milliseconds). Unknown names or negative values are configuration errors.
func (d *Desc) WithDelays(ms map[string]int) (*Desc, error) {
	cp := *d
	fields := cp.Delays.delayFields()
	for name, v := range ms {
		f, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown delay %q", ErrConfig, name)
		}
		if v < 0 {
			return nil, fmt.Errorf("%w: delay %q is negative", ErrConfig, name)
		}
		*f = time.Duration(v) * time.Millisecond
	}
	return &cp, nil
}

// Bringup is the total time Prepare blocks when every step succeeds and no
// diagnostics are read.
func (d *Desc) Bringup() time.Duration {
	dl := d.Delays
	return dl.PowerOn + dl.ResetSetup + dl.ResetPulse + dl.ResetRecovery +
		opsDuration(d.Init) + dl.ExitSleep + dl.DisplayOn
}
