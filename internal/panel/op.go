package panel

import (
	"fmt"
	"time"

	"dsipanel/internal/dsi"
	appLog "dsipanel/internal/log"
)

type OpKind uint8

const (
	OpWrite OpKind = iota
	OpWait
)

func (k OpKind) String() string {
	switch k {
	case OpWrite:
		return "write"
	case OpWait:
		return "wait"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Op is one step of an init table: a DCS write or a wait. Fields are
// unexported so a table cannot be altered once built.
type Op struct {
	kind OpKind
	data []byte
	ms   uint32
}

// Write builds a register write. b[0] is the DCS opcode.
func Write(b ...byte) Op {
	return Op{kind: OpWrite, data: append([]byte(nil), b...)}
}

// Wait builds a delay of ms milliseconds.
func Wait(ms uint32) Op {
	return Op{kind: OpWait, ms: ms}
}

func (o Op) Kind() OpKind { return o.kind }

// Data returns a copy of the write payload.
func (o Op) Data() []byte { return append([]byte(nil), o.data...) }

func (o Op) Duration() time.Duration {
	return time.Duration(o.ms) * time.Millisecond
}

func (o Op) String() string {
	if o.kind == OpWait {
		return fmt.Sprintf("wait %dms", o.ms)
	}
	if len(o.data) == 0 {
		return "write <empty>"
	}
	return fmt.Sprintf("write 0x%02x (%d bytes)", o.data[0], len(o.data))
}

// Run issues ops through b strictly in order. After the first failed write
// the batch turns every remaining op into a no-op, waits included.
func Run(ops []Op, b *dsi.Batch, l *appLog.Logger) {
	for _, o := range ops {
		if b.Failed() {
			return
		}
		switch o.kind {
		case OpWait:
			l.Debug("panel: waiting", "ms", o.ms)
			b.Sleep(o.Duration())
		case OpWrite:
			if len(o.data) > 0 {
				l.Debug("panel: writing command", "cmd", fmt.Sprintf("0x%02x", o.data[0]), "len", len(o.data))
			}
			b.Write(o.data...)
		}
	}
}

// opsDuration sums the waits of ops.
func opsDuration(ops []Op) time.Duration {
	var total time.Duration
	for _, o := range ops {
		if o.kind == OpWait {
			total += o.Duration()
		}
	}
	return total
}
