// Package panel sequences power-up, initialization and power-down of a DSI
// panel: supply regulator, reset line, timed settle delays and the
// variant's init table, issued through a dsi.Batch.
//
// A Panel is not safe for concurrent use. Prepare, Enable, Disable,
// Unprepare and ShowRegisters on one Panel must be serialized by the
// caller. Every wait blocks the caller for its full duration and cannot be
// cancelled; Delays.Teardown bounds how long a power-down can take.
package panel

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"dsipanel/internal/dsi"
	appLog "dsipanel/internal/log"
)

// State is the lifecycle phase of a Panel.
type State int

const (
	StateUnprepared State = iota
	StatePrepared
	StateEnabled
	// StateFaulted means a transition failed part-way. Only Unprepare is
	// accepted until the panel is powered down again.
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateUnprepared:
		return "unprepared"
	case StatePrepared:
		return "prepared"
	case StateEnabled:
		return "enabled"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config is everything needed to attach one panel instance.
type Config struct {
	// Compatible selects the variant from the registry.
	Compatible string
	// Delays overrides variant delays by name, in milliseconds.
	Delays map[string]int

	Transport dsi.Transport
	Power     Regulator
	// Reset is optional. It is held asserted while the panel is unprepared.
	Reset           gpio.PinOut
	ResetActiveHigh bool

	Orientation Orientation
	// BSIT writes the variant's built-in self test command after init.
	BSIT bool
	// Debug dumps the status registers after a successful Prepare.
	Debug bool

	// Sleep defaults to time.Sleep.
	Sleep dsi.SleepFunc
}

// Panel is one attached panel instance.
type Panel struct {
	desc        *Desc
	t           dsi.Transport
	power       Regulator
	reset       gpio.PinOut
	resetActive gpio.Level
	orientation Orientation
	bsit        bool
	debug       bool
	sleep       dsi.SleepFunc
	log         *appLog.Logger

	state State
}

// Probe resolves the variant, takes the supply and reset line, holds the
// panel in reset and attaches the transport with the variant's link
// parameters. Any failure is a configuration error and no Panel is
// returned.
func Probe(cfg Config) (*Panel, error) {
	desc, err := Lookup(cfg.Compatible)
	if err != nil {
		return nil, err
	}
	if len(cfg.Delays) > 0 {
		if desc, err = desc.WithDelays(cfg.Delays); err != nil {
			return nil, err
		}
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("%w: no transport", ErrConfig)
	}
	if cfg.Power == nil {
		return nil, fmt.Errorf("%w: failed to get power regulator", ErrConfig)
	}

	p := &Panel{
		desc:        desc,
		t:           cfg.Transport,
		power:       cfg.Power,
		reset:       cfg.Reset,
		resetActive: gpio.Level(cfg.ResetActiveHigh),
		orientation: cfg.Orientation,
		bsit:        cfg.BSIT,
		debug:       cfg.Debug,
		sleep:       cfg.Sleep,
		log:         appLog.With("panel", desc.Compatible),
	}
	if p.sleep == nil {
		p.sleep = time.Sleep
	}

	if p.bsit {
		p.log.Info("panel: built-in self test enabled")
	}
	if p.reset != nil {
		if err := p.reset.Out(p.resetActive); err != nil {
			return nil, fmt.Errorf("%w: failed to get reset GPIO: %w", ErrConfig, err)
		}
	}

	dev := dsi.Device{Lanes: desc.Lanes, Format: desc.Format, Mode: desc.ModeFlags}
	if err := p.t.Attach(dev); err != nil {
		return nil, fmt.Errorf("%w: failed to attach panel to DSI host: %w", ErrConfig, err)
	}
	p.log.Info("panel: attached",
		"lanes", dev.Lanes,
		"format", dev.Format,
		"mode_flags", dev.Mode,
		"orientation", p.orientation,
		"bringup_budget", desc.Bringup(),
		"teardown_budget", desc.Delays.Teardown(),
	)
	return p, nil
}

// Remove powers the panel down if needed and detaches the transport.
func (p *Panel) Remove() error {
	var errs []error
	if p.state != StateUnprepared {
		if err := p.Disable(); err != nil {
			errs = append(errs, err)
		}
		if err := p.Unprepare(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.t.Detach(); err != nil {
		errs = append(errs, fmt.Errorf("detach: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Panel) State() State             { return p.state }
func (p *Panel) Desc() *Desc              { return p.desc }
func (p *Panel) Orientation() Orientation { return p.orientation }

func (p *Panel) wait(d time.Duration) {
	if d > 0 {
		p.sleep(d)
	}
}

func (p *Panel) batch() *dsi.Batch {
	return dsi.NewBatch(p.t, p.sleep, p.log)
}

func (p *Panel) setReset(asserted bool) error {
	if p.reset == nil {
		return nil
	}
	l := p.resetActive
	if !asserted {
		l = !l
	}
	if err := p.reset.Out(l); err != nil {
		return fmt.Errorf("%w: reset %s -> %v: %w", ErrGPIO, p.reset, l, err)
	}
	return nil
}

// Prepare powers the panel, pulses reset, runs the init table and turns the
// display on. On error the panel is Faulted and must be unprepared before
// another Prepare.
func (p *Panel) Prepare() error {
	if p.state != StateUnprepared {
		return fmt.Errorf("%w: prepare while %s", ErrInvalidTransition, p.state)
	}
	d := p.desc.Delays
	p.log.Info("panel: prepare")

	if err := p.power.Enable(); err != nil {
		p.state = StateFaulted
		p.log.Error("panel: failed to enable power", err)
		return fmt.Errorf("%w: %w", ErrPower, err)
	}
	p.wait(d.PowerOn)

	if p.desc.LP11BeforeReset {
		b := p.batch()
		b.Nop()
		if err := b.Err(); err != nil {
			p.state = StateFaulted
			return err
		}
	}
	p.wait(d.ResetSetup)

	p.log.Debug("panel: toggling reset")
	if err := p.setReset(true); err != nil {
		p.state = StateFaulted
		p.log.Error("panel: reset assert failed", err)
		return err
	}
	p.wait(d.ResetPulse)
	if err := p.setReset(false); err != nil {
		p.state = StateFaulted
		p.log.Error("panel: reset release failed", err)
		return err
	}
	p.wait(d.ResetRecovery)

	b := p.batch()
	Run(p.desc.Init, b, p.log)
	if p.bsit && len(p.desc.SelfTest) > 0 && !b.Failed() {
		p.selfTest()
	}
	b.ExitSleep()
	b.Sleep(d.ExitSleep)
	b.DisplayOn()
	b.Sleep(d.DisplayOn)
	if err := b.Err(); err != nil {
		p.state = StateFaulted
		p.log.Error("panel: init sequence failed", err)
		return err
	}

	p.state = StatePrepared
	if p.debug {
		p.showRegisters(dsi.LowPower)
		p.showRegisters(dsi.HighSpeed)
	}
	return nil
}

// selfTest writes the self test command in low-power mode. A failure is
// logged and bring-up carries on.
func (p *Panel) selfTest() {
	b := p.batch()
	b.WithMode(dsi.LowPower, func() {
		p.log.Info("panel: enabling built-in self test")
		b.Write(p.desc.SelfTest...)
	})
	if err := b.Err(); err != nil {
		p.log.Error("panel: built-in self test failed, continuing", err)
	}
}

// Enable is where a variant with separately switched backlight or self
// test would act. Video is already running after Prepare.
func (p *Panel) Enable() error {
	switch p.state {
	case StatePrepared:
		p.log.Info("panel: enable")
		p.state = StateEnabled
		return nil
	case StateEnabled:
		return nil
	default:
		return fmt.Errorf("%w: enable while %s", ErrInvalidTransition, p.state)
	}
}

// Disable blanks the display and puts the controller to sleep. The panel
// stays powered. Calling it on a panel that is not enabled does nothing.
func (p *Panel) Disable() error {
	if p.state != StateEnabled {
		p.log.Debug("panel: disable ignored", "state", p.state)
		return nil
	}
	d := p.desc.Delays
	p.log.Info("panel: disable")

	b := p.batch()
	b.Sleep(d.BacklightOffToDisplayOff)
	b.DisplayOff()
	b.Sleep(d.DisplayOff)
	b.EnterSleep()
	b.Sleep(d.EnterSleepToResetDown)
	if err := b.Err(); err != nil {
		p.state = StateFaulted
		return err
	}
	p.state = StatePrepared
	return nil
}

// Unprepare asserts reset, cuts power and waits for the supply to decay.
// Every step runs regardless of earlier failures or the current state; the
// first error is returned and the panel is Unprepared afterwards.
func (p *Panel) Unprepare() error {
	p.log.Info("panel: unprepare, asserting reset", "state", p.state)

	var first error
	if err := p.setReset(true); err != nil {
		p.log.Error("panel: reset assert failed", err)
		first = err
	}
	if err := p.power.Disable(); err != nil {
		p.log.Error("panel: failed to disable power", err)
		if first == nil {
			first = fmt.Errorf("%w: %w", ErrPower, err)
		}
	}
	p.wait(p.desc.Delays.PowerOff)

	p.state = StateUnprepared
	return first
}

// ShowRegisters reads the variant's status registers at speed s.
func (p *Panel) ShowRegisters(s dsi.Speed) (*dsi.Dump, error) {
	if p.state != StatePrepared && p.state != StateEnabled {
		return nil, fmt.Errorf("%w: panel is %s", ErrNotPowered, p.state)
	}
	return dsi.DumpRegisters(p.t, p.desc.Registers, s, p.log)
}

func (p *Panel) showRegisters(s dsi.Speed) {
	if _, err := p.ShowRegisters(s); err != nil {
		p.log.Error("panel: register dump failed", err, "speed", s)
	}
}
