// Package dsitest provides a recording dsi.Transport for tests.
//
// Every transport call and every simulated sleep is appended to one ordered
// log, so a test can assert both what reached the wire and how long a
// sequence would have waited.
package dsitest

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"dsipanel/internal/dsi"
)

// ErrInjected is the default failure returned by the Fail helpers.
var ErrInjected = errors.New("dsitest: injected failure")

type Kind string

const (
	Write     Kind = "write"
	Read      Kind = "read"
	MaxReturn Kind = "max_return"
	GetMode   Kind = "get_mode"
	SetMode   Kind = "set_mode"
	Wait      Kind = "wait"
	Attach    Kind = "attach"
	Detach    Kind = "detach"
)

// Call is one entry in the log.
type Call struct {
	Kind Kind
	Data []byte
	Cmd  byte
	N    int
	Mode dsi.ModeFlag
	D    time.Duration
}

// Transport records calls and answers reads from Replies. Fail, when set,
// is consulted for every transport call after it is logged; a non-nil
// result is returned as that call's error.
type Transport struct {
	mu sync.Mutex

	Calls   []Call
	Replies map[byte][]byte
	Fail    func(c Call) error

	Device   dsi.Device
	Attached bool
	Elapsed  time.Duration

	mode dsi.ModeFlag
}

// New returns a Transport starting in mode.
func New(mode dsi.ModeFlag) *Transport {
	return &Transport{mode: mode, Replies: map[byte][]byte{}}
}

func (t *Transport) record(c Call) error {
	t.mu.Lock()
	t.Calls = append(t.Calls, c)
	fail := t.Fail
	t.mu.Unlock()
	if fail != nil {
		return fail(c)
	}
	return nil
}

func (t *Transport) WritePacket(data []byte) error {
	c := Call{Kind: Write, Data: append([]byte(nil), data...)}
	if len(data) > 0 {
		c.Cmd = data[0]
	}
	return t.record(c)
}

func (t *Transport) ReadPacket(cmd byte, maxLen int) ([]byte, error) {
	if err := t.record(Call{Kind: Read, Cmd: cmd, N: maxLen}); err != nil {
		return nil, err
	}
	reply := t.Replies[cmd]
	if len(reply) > maxLen {
		reply = reply[:maxLen]
	}
	return append([]byte(nil), reply...), nil
}

func (t *Transport) SetMaxReturnPacketSize(n int) error {
	return t.record(Call{Kind: MaxReturn, N: n})
}

func (t *Transport) Mode() dsi.ModeFlag {
	t.mu.Lock()
	m := t.mode
	t.mu.Unlock()
	_ = t.record(Call{Kind: GetMode, Mode: m})
	return m
}

func (t *Transport) SetMode(m dsi.ModeFlag) error {
	if err := t.record(Call{Kind: SetMode, Mode: m}); err != nil {
		return err
	}
	t.mu.Lock()
	t.mode = m
	t.mu.Unlock()
	return nil
}

func (t *Transport) Attach(dev dsi.Device) error {
	if err := t.record(Call{Kind: Attach}); err != nil {
		return err
	}
	t.Device = dev
	t.Attached = true
	t.mode = dev.Mode
	return nil
}

func (t *Transport) Detach() error {
	if err := t.record(Call{Kind: Detach}); err != nil {
		return err
	}
	t.Attached = false
	return nil
}

// Sleep is a dsi.SleepFunc that logs the wait and advances Elapsed
// without blocking.
func (t *Transport) Sleep(d time.Duration) {
	_ = t.record(Call{Kind: Wait, D: d})
	t.mu.Lock()
	t.Elapsed += d
	t.mu.Unlock()
}

// CurrentMode returns the mode without logging a call.
func (t *Transport) CurrentMode() dsi.ModeFlag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Only returns the logged calls of the given kinds, in order.
func (t *Transport) Only(kinds ...Kind) []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Call
	for _, c := range t.Calls {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Writes returns the payload of every logged write.
func (t *Transport) Writes() [][]byte {
	var out [][]byte
	for _, c := range t.Only(Write) {
		out = append(out, c.Data)
	}
	return out
}

// WroteCmd reports whether any write started with cmd.
func (t *Transport) WroteCmd(cmd byte) bool {
	for _, c := range t.Only(Write) {
		if c.Cmd == cmd {
			return true
		}
	}
	return false
}

// Reset clears the log and the elapsed time.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
	t.Elapsed = 0
}

// FailNthWrite fails the n-th write (1-based) with err.
func FailNthWrite(n int, err error) func(Call) error {
	seen := 0
	return func(c Call) error {
		if c.Kind != Write {
			return nil
		}
		seen++
		if seen == n {
			return err
		}
		return nil
	}
}

// FailWrite fails every write whose payload equals data.
func FailWrite(data []byte, err error) func(Call) error {
	return func(c Call) error {
		if c.Kind == Write && bytes.Equal(c.Data, data) {
			return err
		}
		return nil
	}
}

// FailCmd fails every write or read addressed to cmd.
func FailCmd(cmd byte, err error) func(Call) error {
	return func(c Call) error {
		if (c.Kind == Write || c.Kind == Read) && c.Cmd == cmd {
			return err
		}
		return nil
	}
}
