// Package host owns one attached panel for the lifetime of the process. It
// serializes every lifecycle call behind a single lock, runs scheduled
// register dumps, and powers the panel down on shutdown.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dsipanel/internal/dsi"
	appLog "dsipanel/internal/log"
	"dsipanel/internal/panel"
	"dsipanel/internal/supply"
)

// Panel is the lifecycle surface of *panel.Panel the host drives.
type Panel interface {
	Prepare() error
	Enable() error
	Disable() error
	Unprepare() error
	ShowRegisters(s dsi.Speed) (*dsi.Dump, error)
	State() panel.State
	Desc() *panel.Desc
	Orientation() panel.Orientation
}

// Options configures a Host.
type Options struct {
	// Schedule is a standard cron expression for periodic register dumps.
	// Empty disables them.
	Schedule string
	// Supply, when set, is sampled after every power on and in Status.
	Supply supply.Monitor
	// MinMv is the rail voltage below which a power on is reported as
	// brown-out. Zero disables the check.
	MinMv int
	// SupplyTTL is how long a supply reading is served from cache by
	// Status. Defaults to DefaultSupplyTTL.
	SupplyTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultSupplyTTL bounds how often Status touches the I2C bus.
const DefaultSupplyTTL = 30 * time.Second

// Host serializes access to one panel. mu is held for the whole of a
// lifecycle call; Status never takes it, so a poll does not wait out a
// bring-up.
type Host struct {
	mu sync.Mutex
	p  Panel

	schedule  cron.Schedule
	cronExpr  string
	supply    supply.Monitor
	supplyTTL time.Duration
	minMv     int
	now       func() time.Time
	log       *appLog.Logger

	snapMu   sync.RWMutex
	state    panel.State
	lastErr  error
	lastDiag *Diagnostics
	changed  time.Time

	// supplyMu serializes bus reads and guards the cached reading.
	supplyMu  sync.Mutex
	supplyAt  time.Time
	supplyVal supply.Reading
	supplyErr error
}

// New wraps p. The schedule, if any, is validated here.
func New(p Panel, opts Options) (*Host, error) {
	h := &Host{
		p:         p,
		cronExpr:  opts.Schedule,
		supply:    opts.Supply,
		supplyTTL: opts.SupplyTTL,
		minMv:     opts.MinMv,
		now:       opts.Now,
		log:       appLog.With("panel", p.Desc().Compatible),
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.supplyTTL <= 0 {
		h.supplyTTL = DefaultSupplyTTL
	}
	if h.cronExpr != "" {
		s, err := cron.ParseStandard(h.cronExpr)
		if err != nil {
			return nil, fmt.Errorf("host: invalid diagnostics schedule %q: %w", h.cronExpr, err)
		}
		h.schedule = s
	}
	h.state = p.State()
	h.changed = h.now()
	return h, nil
}

// PowerOn brings the panel to Enabled. A faulted panel is unprepared first.
// If bring-up fails the panel is unprepared again so the supply is not left
// on with the controller in an unknown state.
func (h *Host) PowerOn() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.p.State() {
	case panel.StateEnabled:
		return nil
	case panel.StateFaulted:
		h.log.Warn("host: panel faulted, powering down before retry")
		if err := h.p.Unprepare(); err != nil {
			return h.record(fmt.Errorf("host: recover from fault: %w", err))
		}
	}

	if h.p.State() == panel.StateUnprepared {
		if err := h.p.Prepare(); err != nil {
			if uerr := h.p.Unprepare(); uerr != nil {
				h.log.Error("host: unprepare after failed prepare", uerr)
			}
			return h.record(fmt.Errorf("host: power on: %w", err))
		}
	}
	if err := h.p.Enable(); err != nil {
		return h.record(fmt.Errorf("host: power on: %w", err))
	}
	h.checkSupply()
	return h.record(nil)
}

// checkSupply logs the rail voltage after power on. A low rail is reported
// but does not fail the transition.
func (h *Host) checkSupply() {
	if h.supply == nil {
		return
	}
	r, err := h.readSupply(true)
	if err != nil {
		h.log.Warn("host: supply read failed", "err", err)
		return
	}
	if h.minMv > 0 && r.BusMv < h.minMv {
		h.log.Warn("host: panel rail below minimum", "bus_mv", r.BusMv, "min_mv", h.minMv)
		return
	}
	h.log.Debug("host: panel rail", "bus_mv", r.BusMv, "shunt_uv", r.ShuntUv)
}

// readSupply returns the cached reading while it is younger than the TTL
// unless force is set, and reads the bus otherwise.
func (h *Host) readSupply(force bool) (supply.Reading, error) {
	h.supplyMu.Lock()
	defer h.supplyMu.Unlock()

	now := h.now()
	if !force && !h.supplyAt.IsZero() && now.Sub(h.supplyAt) < h.supplyTTL {
		return h.supplyVal, h.supplyErr
	}
	h.supplyVal, h.supplyErr = h.supply.Read(context.Background())
	h.supplyAt = now
	return h.supplyVal, h.supplyErr
}

// PowerOff disables and unprepares the panel. Unprepare runs even when
// Disable fails.
func (h *Host) PowerOff() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.powerOff()
}

func (h *Host) powerOff() error {
	if h.p.State() == panel.StateUnprepared {
		return nil
	}
	var errs []error
	if err := h.p.Disable(); err != nil {
		errs = append(errs, err)
	}
	if err := h.p.Unprepare(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return h.record(fmt.Errorf("host: power off: %w", err))
	}
	return h.record(nil)
}

func (h *Host) record(err error) error {
	st := h.p.State()
	h.snapMu.Lock()
	h.state = st
	h.lastErr = err
	h.changed = h.now()
	h.snapMu.Unlock()
	if err != nil {
		h.log.Error("host: transition failed", err, "state", st)
	} else {
		h.log.Info("host: panel state", "state", st)
	}
	return err
}

// Diagnose dumps the status registers in low-power and then high-speed
// mode. It fails with panel.ErrNotPowered on an unpowered panel.
func (h *Host) Diagnose() (*Diagnostics, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	diag := &Diagnostics{Time: h.now()}
	for _, s := range []dsi.Speed{dsi.LowPower, dsi.HighSpeed} {
		d, err := h.p.ShowRegisters(s)
		if err != nil {
			return nil, fmt.Errorf("host: diagnose in %s mode: %w", s, err)
		}
		diag.Dumps = append(diag.Dumps, reportDump(d))
	}
	h.snapMu.Lock()
	h.lastDiag = diag
	h.snapMu.Unlock()
	return diag, nil
}

func (h *Host) scheduledDiagnose() {
	h.snapMu.RLock()
	st := h.state
	h.snapMu.RUnlock()
	if st != panel.StatePrepared && st != panel.StateEnabled {
		h.log.Debug("host: scheduled diagnostics skipped", "state", st)
		return
	}
	diag, err := h.Diagnose()
	if err != nil {
		h.log.Error("host: scheduled diagnostics failed", err)
		return
	}
	h.log.Info("host: scheduled diagnostics", "failed_reads", diag.Failed())
}

// Status returns a snapshot of the panel as of the last completed
// transition. The supply reading may be up to the supply TTL old.
func (h *Host) Status() Status {
	d := h.p.Desc()
	h.snapMu.RLock()
	st := Status{
		Name:        d.Name,
		Compatible:  d.Compatible,
		State:       h.state.String(),
		Orientation: h.p.Orientation().String(),
		Mode:        d.Mode,
		Lanes:       d.Lanes,
		Format:      d.Format.String(),
		Since:       h.changed,
		Diagnostics: h.lastDiag,
	}
	if h.lastErr != nil {
		st.LastError = h.lastErr.Error()
	}
	h.snapMu.RUnlock()

	if h.supply != nil {
		r, err := h.readSupply(false)
		if err != nil {
			st.SupplyError = err.Error()
		} else {
			st.Supply = &r
		}
	}
	return st
}

// Run schedules periodic diagnostics until ctx is done, then powers the
// panel off. It returns the power-off error, if any.
func (h *Host) Run(ctx context.Context) error {
	var c *cron.Cron
	if h.schedule != nil {
		c = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		c.Schedule(h.schedule, cron.FuncJob(h.scheduledDiagnose))
		c.Start()
		h.log.Info("host: diagnostics scheduled", "schedule", h.cronExpr)
	}

	<-ctx.Done()

	if c != nil {
		<-c.Stop().Done()
	}
	h.log.Info("host: shutting down, powering panel off")
	return h.PowerOff()
}
