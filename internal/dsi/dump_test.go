package dsi_test

import (
	"errors"
	"testing"

	"dsipanel/internal/dsi"
	"dsipanel/internal/dsi/dsitest"
)

func TestDumpRegistersContinuesPastFailure(t *testing.T) {
	start := dsi.ModeVideo | dsi.ModeVideoBurst | dsi.ModeLPM
	tr := dsitest.New(start)
	tr.Replies[0x0a] = []byte{0x9c}
	tr.Replies[0x04] = []byte{0x00, 0x80, 0x00}
	tr.Replies[0x09] = []byte{0x80, 0x73, 0x04, 0x00}
	tr.Fail = func(c dsitest.Call) error {
		if c.Kind == dsitest.Read && c.Cmd == 0x0b {
			return dsitest.ErrInjected
		}
		return nil
	}
	regs := []dsi.Register{{Cmd: 0x0a, Len: 1}, {Cmd: 0x0b, Len: 1}, {Cmd: 0x04, Len: 3}, {Cmd: 0x09, Len: 4}}

	d, err := dsi.DumpRegisters(tr, regs, dsi.HighSpeed, nil)
	if err != nil {
		t.Fatalf("DumpRegisters() error = %v", err)
	}
	if len(d.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(d.Results))
	}
	if d.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", d.Failed())
	}
	if !errors.Is(d.Results[1].Err, dsitest.ErrInjected) {
		t.Errorf("result[1].Err = %v, want ErrInjected", d.Results[1].Err)
	}
	for _, i := range []int{0, 2, 3} {
		if d.Results[i].Err != nil {
			t.Errorf("result[%d].Err = %v, want nil", i, d.Results[i].Err)
		}
	}
	if d.Mode.Has(dsi.ModeLPM) {
		t.Errorf("dump ran in %v, want LPM cleared for HS", d.Mode)
	}

	if got := tr.Mode(); got != start {
		t.Errorf("Mode() after dump = %v, want %v", got, start)
	}

	// Each register negotiates its reply size right before the read.
	seq := tr.Only(dsitest.MaxReturn, dsitest.Read)
	if len(seq) != 8 {
		t.Fatalf("max-return/read calls = %d, want 8", len(seq))
	}
	for i, reg := range regs {
		if seq[2*i].Kind != dsitest.MaxReturn || seq[2*i].N != reg.Len {
			t.Errorf("call %d = %+v, want max return %d", 2*i, seq[2*i], reg.Len)
		}
		if seq[2*i+1].Kind != dsitest.Read || seq[2*i+1].Cmd != reg.Cmd {
			t.Errorf("call %d = %+v, want read 0x%02x", 2*i+1, seq[2*i+1], reg.Cmd)
		}
	}
}

func TestDumpRegistersLowPower(t *testing.T) {
	start := dsi.ModeVideo
	tr := dsitest.New(start)

	d, err := dsi.DumpRegisters(tr, dsi.StatusRegisters, dsi.LowPower, nil)
	if err != nil {
		t.Fatalf("DumpRegisters() error = %v", err)
	}
	if !d.Mode.Has(dsi.ModeLPM) {
		t.Errorf("dump ran in %v, want LPM set", d.Mode)
	}
	if len(d.Results) != len(dsi.StatusRegisters) {
		t.Errorf("results = %d, want %d", len(d.Results), len(dsi.StatusRegisters))
	}
	if got := tr.CurrentMode(); got != start {
		t.Errorf("mode after dump = %v, want %v", got, start)
	}
}

func TestDumpRegistersMaxReturnFailureSkipsRead(t *testing.T) {
	tr := dsitest.New(dsi.ModeLPM)
	tr.Fail = func(c dsitest.Call) error {
		if c.Kind == dsitest.MaxReturn && c.N == 3 {
			return dsitest.ErrInjected
		}
		return nil
	}
	regs := []dsi.Register{{Cmd: 0x04, Len: 3}, {Cmd: 0x0a, Len: 1}}

	d, err := dsi.DumpRegisters(tr, regs, dsi.LowPower, nil)
	if err != nil {
		t.Fatalf("DumpRegisters() error = %v", err)
	}
	if d.Results[0].Err == nil || d.Results[1].Err != nil {
		t.Errorf("results = %+v, want first failed and second read", d.Results)
	}
	reads := tr.Only(dsitest.Read)
	if len(reads) != 1 || reads[0].Cmd != 0x0a {
		t.Errorf("reads = %+v, want only 0x0a", reads)
	}
}

func TestDumpRegistersModeSwitchFailure(t *testing.T) {
	tr := dsitest.New(dsi.ModeLPM)
	tr.Fail = func(c dsitest.Call) error {
		if c.Kind == dsitest.SetMode {
			return dsitest.ErrInjected
		}
		return nil
	}

	d, err := dsi.DumpRegisters(tr, dsi.StatusRegisters, dsi.HighSpeed, nil)
	if err == nil || d != nil {
		t.Fatalf("DumpRegisters() = %v, %v, want error", d, err)
	}
	if n := len(tr.Only(dsitest.Read)); n != 0 {
		t.Errorf("reads = %d, want 0", n)
	}
}

func TestDumpRegistersRestoreFailureReported(t *testing.T) {
	tr := dsitest.New(dsi.ModeLPM)
	sets := 0
	tr.Fail = func(c dsitest.Call) error {
		if c.Kind == dsitest.SetMode {
			sets++
			if sets == 2 {
				return dsitest.ErrInjected
			}
		}
		return nil
	}

	d, err := dsi.DumpRegisters(tr, []dsi.Register{{Cmd: 0x0a, Len: 1}}, dsi.HighSpeed, nil)
	if !errors.Is(err, dsitest.ErrInjected) {
		t.Fatalf("DumpRegisters() error = %v, want restore failure", err)
	}
	if d == nil || len(d.Results) != 1 {
		t.Errorf("dump = %+v, want the collected results", d)
	}
}

func TestRegisterResultHex(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{nil, "00 00 00 00"},
		{[]byte{0x9c}, "9c"},
		{[]byte{0x00, 0x80, 0x00}, "00 80 00"},
		{[]byte{0x80, 0x73, 0x04, 0x00}, "80 73 04 00"},
		{[]byte{1, 2, 3, 4, 5}, "01 02 03 04"},
	}
	for _, tt := range tests {
		r := dsi.RegisterResult{Data: tt.data}
		if got := r.Hex(); got != tt.want {
			t.Errorf("Hex(%x) = %q, want %q", tt.data, got, tt.want)
		}
	}
}
