// Package board opens the host hardware a panel is wired to: the SPI
// link(s) carrying DCS packets and the GPIO lines for data/command, reset
// and the supply switch. Pin and port names are periph.io names, so the
// same config works on any host periph supports.
package board

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"dsipanel/internal/config"
	"dsipanel/internal/dsi"
	appLog "dsipanel/internal/log"
	"dsipanel/internal/panel"
	"dsipanel/internal/supply"
)

// hostInit is replaced in tests.
var hostInit = func() error {
	_, err := host.Init()
	return err
}

// Board owns the opened ports and pins.
type Board struct {
	Transport *dsi.ConnTransport
	// Reset is nil when no reset line is configured.
	Reset gpio.PinOut
	Power *panel.GPIORegulator
	// Supply is nil until OpenSupply succeeds.
	Supply *supply.INA219

	ports []spi.PortCloser
	buses []i2c.BusCloser
}

// Open initializes periph.io and resolves every configured port and pin.
func Open(tc config.TransportConfig, gc config.GPIOConfig) (*Board, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("board: periph host init failed: %w", err)
	}

	b := &Board{}
	lp, err := b.connect(tc.SPIPort, tc.MaxHz)
	if err != nil {
		b.Close()
		return nil, err
	}
	var hs spi.Conn
	if tc.HSPort != "" {
		if hs, err = b.connect(tc.HSPort, tc.HSMaxHz); err != nil {
			b.Close()
			return nil, err
		}
	}

	dc, err := pin(tc.DCPin, "dc")
	if err != nil {
		b.Close()
		return nil, err
	}
	pwr, err := pin(gc.Power, "power")
	if err != nil {
		b.Close()
		return nil, err
	}
	if gc.Reset != "" {
		rst, err := pin(gc.Reset, "reset")
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Reset = rst
	}

	b.Transport = dsi.NewConnTransport(lp, hs, dc)
	b.Power = &panel.GPIORegulator{Pin: pwr, ActiveLow: gc.PowerActiveLow}

	appLog.Info("board: opened",
		"spi", tc.SPIPort,
		"hs_spi", tc.HSPort,
		"dc", dc,
		"reset", gc.Reset,
		"power", pwr,
	)
	return b, nil
}

func (b *Board) connect(name string, hz int64) (spi.Conn, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("board: failed to open SPI port %q: %w", name, err)
	}
	b.ports = append(b.ports, port)

	c, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("board: failed to connect SPI %q: %w", name, err)
	}
	return c, nil
}

func pin(name, role string) (gpio.PinIO, error) {
	if name == "" {
		return nil, fmt.Errorf("board: no %s pin configured", role)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("board: %s pin %q not found", role, name)
	}
	return p, nil
}

// OpenSupply attaches the rail monitor. A zero address leaves it disabled.
func (b *Board) OpenSupply(sc config.SupplyConfig) error {
	if sc.Addr == 0 {
		return nil
	}
	bus, err := i2creg.Open(sc.I2CBus)
	if err != nil {
		return fmt.Errorf("board: failed to open I2C bus %q: %w", sc.I2CBus, err)
	}
	b.buses = append(b.buses, bus)
	b.Supply = supply.NewINA219(bus, sc.Addr)
	appLog.Info("board: supply monitor", "bus", bus, "addr", fmt.Sprintf("0x%02x", sc.Addr))
	return nil
}

// Close releases the SPI ports and I2C buses. Pins are left in their last
// state so the panel stays in reset with its supply off after Unprepare.
func (b *Board) Close() error {
	var errs []error
	for _, p := range b.ports {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.ports = nil
	for _, bus := range b.buses {
		if err := bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.buses = nil
	return errors.Join(errs...)
}
