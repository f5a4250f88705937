package dsi

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// ConnTransport carries DCS packets over a periph.io connection plus a
// data/command select line, the way DBI-style bridges and SPI-attached
// controllers are wired: the opcode is clocked out with D/C low, the
// parameters with D/C high.
//
// lp is used while ModeLPM is set. hs, when non-nil, is used while ModeLPM
// is clear, so a board can wire a slower and a faster connection to the same
// controller.
type ConnTransport struct {
	lp conn.Conn
	hs conn.Conn
	dc gpio.PinOut

	dev       Device
	mode      ModeFlag
	maxReturn int
	attached  bool
}

// NewConnTransport returns a detached transport. hs may be nil.
func NewConnTransport(lp, hs conn.Conn, dc gpio.PinOut) *ConnTransport {
	return &ConnTransport{lp: lp, hs: hs, dc: dc, mode: ModeLPM, maxReturn: 1}
}

func (c *ConnTransport) String() string {
	return fmt.Sprintf("dsi-conn(%s)", c.lp)
}

func (c *ConnTransport) link() conn.Conn {
	if !c.mode.Has(ModeLPM) && c.hs != nil {
		return c.hs
	}
	return c.lp
}

func (c *ConnTransport) Attach(dev Device) error {
	if dev.Lanes <= 0 {
		return fmt.Errorf("dsi: invalid lane count %d", dev.Lanes)
	}
	c.dev = dev
	c.mode = dev.Mode
	c.attached = true
	return nil
}

func (c *ConnTransport) Detach() error {
	if !c.attached {
		return ErrNotAttached
	}
	c.attached = false
	return nil
}

// Attached returns the device announced at Attach time.
func (c *ConnTransport) Attached() (Device, bool) {
	return c.dev, c.attached
}

func (c *ConnTransport) Mode() ModeFlag { return c.mode }

func (c *ConnTransport) SetMode(m ModeFlag) error {
	c.mode = m
	return nil
}

func (c *ConnTransport) SetMaxReturnPacketSize(n int) error {
	if !c.attached {
		return ErrNotAttached
	}
	if n <= 0 || n > 0xffff {
		return fmt.Errorf("dsi: invalid maximum return packet size %d", n)
	}
	c.maxReturn = n
	return nil
}

func (c *ConnTransport) sendCommand(cmd byte) error {
	if err := c.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("dc low: %w", err)
	}
	if err := c.link().Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("tx cmd 0x%02x: %w", cmd, err)
	}
	return nil
}

func (c *ConnTransport) WritePacket(data []byte) error {
	if !c.attached {
		return ErrNotAttached
	}
	if len(data) == 0 {
		return ErrEmptyPacket
	}
	if err := c.sendCommand(data[0]); err != nil {
		return err
	}
	if len(data) == 1 {
		return nil
	}
	if err := c.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("dc high: %w", err)
	}
	if err := c.link().Tx(data[1:], nil); err != nil {
		return fmt.Errorf("tx params of 0x%02x: %w", data[0], err)
	}
	return nil
}

func (c *ConnTransport) ReadPacket(cmd byte, maxLen int) ([]byte, error) {
	if !c.attached {
		return nil, ErrNotAttached
	}
	if maxLen > c.maxReturn {
		return nil, ErrReplyTooLong
	}
	if err := c.sendCommand(cmd); err != nil {
		return nil, err
	}
	if err := c.dc.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("dc high: %w", err)
	}
	buf := make([]byte, maxLen)
	if err := c.link().Tx(nil, buf); err != nil {
		return nil, fmt.Errorf("rx reply of 0x%02x: %w", cmd, err)
	}
	return buf, nil
}
