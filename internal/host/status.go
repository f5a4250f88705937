package host

import (
	"fmt"
	"time"

	"dsipanel/internal/dsi"
	"dsipanel/internal/panel"
	"dsipanel/internal/supply"
)

// Status is the JSON snapshot served by the API.
type Status struct {
	Name        string            `json:"name"`
	Compatible  string            `json:"compatible"`
	State       string            `json:"state"`
	Orientation string            `json:"orientation"`
	Mode        panel.DisplayMode `json:"mode"`
	Lanes       int               `json:"lanes"`
	Format      string            `json:"format"`
	Since       time.Time         `json:"since"`
	LastError   string            `json:"last_error,omitempty"`
	Diagnostics *Diagnostics      `json:"diagnostics,omitempty"`
	Supply      *supply.Reading   `json:"supply,omitempty"`
	SupplyError string            `json:"supply_error,omitempty"`
}

// Diagnostics is one LP plus HS register dump.
type Diagnostics struct {
	Time  time.Time    `json:"time"`
	Dumps []DumpReport `json:"dumps"`
}

// Failed counts unreadable registers across all dumps.
func (d *Diagnostics) Failed() int {
	n := 0
	for _, dump := range d.Dumps {
		for _, r := range dump.Registers {
			if r.Error != "" {
				n++
			}
		}
	}
	return n
}

type DumpReport struct {
	Speed     string           `json:"speed"`
	Mode      string           `json:"mode"`
	Registers []RegisterReport `json:"registers"`
}

type RegisterReport struct {
	Cmd   string `json:"cmd"`
	Len   int    `json:"len"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

func reportDump(d *dsi.Dump) DumpReport {
	r := DumpReport{
		Speed:     d.Speed.String(),
		Mode:      d.Mode.String(),
		Registers: make([]RegisterReport, 0, len(d.Results)),
	}
	for _, res := range d.Results {
		rr := RegisterReport{Cmd: fmt.Sprintf("0x%02x", res.Cmd), Len: res.Len}
		if res.Err != nil {
			rr.Error = res.Err.Error()
		} else {
			rr.Value = res.Hex()
		}
		r.Registers = append(r.Registers, rr)
	}
	return r
}
