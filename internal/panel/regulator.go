package panel

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Regulator switches the panel supply.
type Regulator interface {
	Enable() error
	Disable() error
}

// GPIORegulator is a fixed-voltage supply whose enable input is wired to a
// GPIO, e.g. a load switch in front of the panel's VCI rail.
type GPIORegulator struct {
	Pin       gpio.PinOut
	ActiveLow bool
}

func (r *GPIORegulator) level(on bool) gpio.Level {
	return gpio.Level(on != r.ActiveLow)
}

func (r *GPIORegulator) Enable() error {
	if err := r.Pin.Out(r.level(true)); err != nil {
		return fmt.Errorf("enable %s: %w", r.Pin, err)
	}
	return nil
}

func (r *GPIORegulator) Disable() error {
	if err := r.Pin.Out(r.level(false)); err != nil {
		return fmt.Errorf("disable %s: %w", r.Pin, err)
	}
	return nil
}

func (r *GPIORegulator) String() string {
	return fmt.Sprintf("gpio-regulator(%s)", r.Pin)
}
