package dsi

import (
	"fmt"
	"strings"

	appLog "dsipanel/internal/log"
)

// Register is one status register read during a dump.
type Register struct {
	Cmd byte
	Len int
}

// StatusRegisters is the standard set of DCS status reads.
var StatusRegisters = []Register{
	{DCSGetErrorCountOnDSI, 1},
	{DCSGetPowerMode, 1},
	{DCSGetAddressMode, 1},
	{DCSGetPixelFormat, 1},
	{DCSGetDisplayMode, 1},
	{DCSGetSignalMode, 1},
	{DCSGetDiagnostic, 1},
	{DCSGetDisplayBright, 1},
	{DCSGetControlDisplay, 1},
	{DCSGetPowerSave, 1},
	{DCSReadID1, 1},
	{DCSReadID2, 1},
	{DCSReadID3, 1},
	{DCSGetDisplayID, 3},
	{DCSGetDisplayStatus, 4},
	{DCSGetScanline, 2},
	{DCSGetPowerMode, 1},
}

// hexWidth is how many reply bytes a result renders.
const hexWidth = 4

// RegisterResult is the outcome of one register read.
type RegisterResult struct {
	Cmd  byte   `json:"cmd"`
	Len  int    `json:"len"`
	Data []byte `json:"data,omitempty"`
	Err  error  `json:"-"`
}

// Hex renders the reply as "xx xx xx xx", cut to the bytes actually
// returned and never wider than four bytes.
func (r RegisterResult) Hex() string {
	var buf [hexWidth]byte
	n := copy(buf[:], r.Data)
	s := fmt.Sprintf("%02x %02x %02x %02x", buf[0], buf[1], buf[2], buf[3])
	if n > 0 && n < hexWidth {
		s = s[:3*n-1]
	}
	return s
}

func (r RegisterResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("cmd 0x%02x: %v", r.Cmd, r.Err)
	}
	return fmt.Sprintf("cmd 0x%02x returned %d bytes: %s", r.Cmd, len(r.Data), r.Hex())
}

// Dump is the result of reading a register list at one speed.
type Dump struct {
	Speed   Speed            `json:"-"`
	Mode    ModeFlag         `json:"-"`
	Results []RegisterResult `json:"results"`
}

// Failed counts the registers that could not be read.
func (d *Dump) Failed() int {
	n := 0
	for _, r := range d.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func (d *Dump) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "registers in %s mode:", d.Speed)
	for _, r := range d.Results {
		b.WriteString("\n  ")
		b.WriteString(r.String())
	}
	return b.String()
}

// DumpRegisters reads every register in regs with the transport switched to
// speed s. A failed read is recorded and the dump moves on to the next
// register. The transport's mode flags are restored before returning on
// every path.
//
// The returned error only reports a failure to switch or restore the mode;
// per-register failures live in the Dump.
func DumpRegisters(t Transport, regs []Register, s Speed, l *appLog.Logger) (d *Dump, err error) {
	prev := t.Mode()
	if err := t.SetMode(s.apply(prev)); err != nil {
		l.Error("dsi: failed to switch mode for register dump", err, "speed", s)
		return nil, &OpError{Op: "set " + s.String() + " mode", Err: err}
	}
	defer func() {
		if rerr := t.SetMode(prev); rerr != nil {
			l.Error("dsi: failed to restore mode after register dump", rerr, "mode", prev)
			if err == nil {
				err = &OpError{Op: "restore mode", Err: rerr}
			}
		}
	}()

	d = &Dump{Speed: s, Mode: t.Mode(), Results: make([]RegisterResult, 0, len(regs))}
	l.Info("dsi: reading registers", "speed", s)
	for _, reg := range regs {
		res := readRegister(t, reg)
		if res.Err != nil {
			l.Error("dsi: register read failed", res.Err, "cmd", fmt.Sprintf("0x%02x", reg.Cmd))
		} else {
			l.Info("dsi: register", "cmd", fmt.Sprintf("0x%02x", reg.Cmd), "count", len(res.Data), "data", res.Hex())
		}
		d.Results = append(d.Results, res)
	}
	return d, nil
}

func readRegister(t Transport, reg Register) RegisterResult {
	res := RegisterResult{Cmd: reg.Cmd, Len: reg.Len}
	if err := t.SetMaxReturnPacketSize(reg.Len); err != nil {
		res.Err = &OpError{Op: "set maximum return packet size", Data: []byte{reg.Cmd}, Err: err}
		return res
	}
	data, err := t.ReadPacket(reg.Cmd, reg.Len)
	if err != nil {
		res.Err = &OpError{Op: "DCS read", Data: []byte{reg.Cmd}, Err: err}
		return res
	}
	if len(data) > reg.Len {
		data = data[:reg.Len]
	}
	res.Data = data
	return res
}
