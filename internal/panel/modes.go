package panel

import "fmt"

// DisplayInfo is the connector-level information a panel fills in.
type DisplayInfo struct {
	WidthMM     int
	HeightMM    int
	BPC         int
	Orientation Orientation
}

// Connector collects the modes and display info reported by a panel.
type Connector struct {
	Modes []DisplayMode
	Info  DisplayInfo
}

// GetModes adds the panel's fixed mode to c as the preferred mode, records
// the physical size and mounting orientation, and returns the number of
// modes added.
func (p *Panel) GetModes(c *Connector) int {
	c.Info.BPC = 0
	c.Info.Orientation = p.orientation

	m := p.desc.Mode
	if m.Name == "" {
		m.Name = fmt.Sprintf("%dx%d", m.HDisplay, m.VDisplay)
	}
	m.Type |= ModeTypePreferred
	c.Modes = append(c.Modes, m)

	if m.WidthMM != 0 {
		c.Info.WidthMM = m.WidthMM
	}
	if m.HeightMM != 0 {
		c.Info.HeightMM = m.HeightMM
	}
	p.log.Debug("panel: get modes", "mode", m)
	return 1
}
