package dsi

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a failure at the wire level (write, read or mode set).
	ErrTransport = errors.New("dsi: transport failure")

	// ErrNotAttached is returned by a transport used before Attach.
	ErrNotAttached = errors.New("dsi: device not attached")

	// ErrReplyTooLong is returned when a read asks for more bytes than the
	// negotiated maximum return packet size.
	ErrReplyTooLong = errors.New("dsi: read longer than maximum return packet size")

	// ErrEmptyPacket is returned for a write without an opcode byte.
	ErrEmptyPacket = errors.New("dsi: empty packet")
)

// OpError records which operation failed and with what bytes. A Batch
// reports its first OpError as the aggregate result of the whole batch.
type OpError struct {
	Op   string
	Data []byte
	Err  error
}

func (e *OpError) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("dsi: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("dsi: %s (cmd 0x%02x): %v", e.Op, e.Data[0], e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) hold for every OpError.
func (e *OpError) Is(target error) bool { return target == ErrTransport }
