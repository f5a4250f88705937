package dsi

import (
	"fmt"
	"time"

	appLog "dsipanel/internal/log"
)

// Batch issues an ordered run of panel operations and keeps the first
// failure. Once a failure is recorded every later call returns without
// touching the transport or sleeping, so a caller can issue a long
// sequence and check Err once at the end.
//
// A Batch belongs to one lifecycle transition and must not be reused or
// shared.
type Batch struct {
	t     Transport
	sleep SleepFunc
	log   *appLog.Logger
	err   *OpError
}

// NewBatch returns an empty Batch over t. A nil sleep uses time.Sleep and a
// nil logger writes through the package-level log.
func NewBatch(t Transport, sleep SleepFunc, l *appLog.Logger) *Batch {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Batch{t: t, sleep: sleep, log: l}
}

// Err returns the first failure of the batch, or nil.
func (b *Batch) Err() error {
	if b.err == nil {
		return nil
	}
	return b.err
}

// Failed reports whether an operation has already failed.
func (b *Batch) Failed() bool { return b.err != nil }

func (b *Batch) fail(op string, data []byte, err error) {
	b.err = &OpError{Op: op, Data: append([]byte(nil), data...), Err: err}
	b.log.Error("dsi: sending "+op+" failed", err, "data", fmt.Sprintf("% x", data))
}

func (b *Batch) send(op string, data []byte) {
	if b.err != nil {
		return
	}
	if len(data) == 0 {
		b.fail(op, nil, ErrEmptyPacket)
		return
	}
	if err := b.t.WritePacket(data); err != nil {
		b.fail(op, data, err)
	}
}

// Write sends data as one DCS packet; data[0] is the opcode.
func (b *Batch) Write(data ...byte) {
	b.send("DCS write", data)
}

// WriteSeq sends cmd followed by params as one DCS packet.
func (b *Batch) WriteSeq(cmd byte, params ...byte) {
	b.send("DCS write", append([]byte{cmd}, params...))
}

// Sleep waits d unless the batch has already failed.
func (b *Batch) Sleep(d time.Duration) {
	if b.err != nil || d <= 0 {
		return
	}
	b.sleep(d)
}

func (b *Batch) Nop() {
	b.send("NOP", []byte{DCSNop})
}

func (b *Batch) EnterSleep() {
	b.send("ENTER_SLEEP_MODE", []byte{DCSEnterSleepMode})
}

func (b *Batch) ExitSleep() {
	b.send("EXIT_SLEEP_MODE", []byte{DCSExitSleepMode})
}

func (b *Batch) DisplayOn() {
	b.send("SET_DISPLAY_ON", []byte{DCSSetDisplayOn})
}

func (b *Batch) DisplayOff() {
	b.send("SET_DISPLAY_OFF", []byte{DCSSetDisplayOff})
}

// WithMode runs fn with the transport switched to speed s and then puts the
// previous mode flags back. Nothing runs if the batch has already failed.
func (b *Batch) WithMode(s Speed, fn func()) {
	if b.err != nil {
		return
	}
	prev := b.t.Mode()
	if err := b.t.SetMode(s.apply(prev)); err != nil {
		b.fail("set "+s.String()+" mode", nil, err)
		return
	}
	defer func() {
		err := b.t.SetMode(prev)
		if err == nil {
			return
		}
		if b.err == nil {
			b.fail("restore mode", nil, err)
			return
		}
		b.log.Error("dsi: restore mode failed", err, "mode", prev)
	}()
	b.log.Debug("dsi: batch mode override", "speed", s, "mode", b.t.Mode())
	fn()
}
