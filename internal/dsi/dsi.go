// Package dsi models the command/data link between the host and a MIPI DSI
// panel controller: the Transport a panel driver talks through, the DCS
// opcodes it sends, a batched command context that stops at the first
// failure, and a diagnostic register dump.
//
// A Transport is not safe for concurrent use. A panel driver issues one
// command at a time and the caller serializes drivers.
package dsi

import (
	"strings"
	"time"
)

// ModeFlag is a set of link operating flags.
type ModeFlag uint32

const (
	ModeVideo ModeFlag = 1 << iota
	ModeVideoBurst
	ModeVideoSyncPulse
	ModeVideoNoHFP
	ModeVideoNoHBP
	ModeVideoNoHSA
	ModeNoEOTPacket
	ModeClockNonContinuous
	// ModeLPM sends commands in low-power mode. Cleared means high-speed.
	ModeLPM
)

var modeNames = []struct {
	f    ModeFlag
	name string
}{
	{ModeVideo, "video"},
	{ModeVideoBurst, "burst"},
	{ModeVideoSyncPulse, "sync_pulse"},
	{ModeVideoNoHFP, "no_hfp"},
	{ModeVideoNoHBP, "no_hbp"},
	{ModeVideoNoHSA, "no_hsa"},
	{ModeNoEOTPacket, "no_eot"},
	{ModeClockNonContinuous, "clock_non_continuous"},
	{ModeLPM, "lpm"},
}

func (m ModeFlag) Has(f ModeFlag) bool { return m&f == f }

func (m ModeFlag) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, n := range modeNames {
		if m.Has(n.f) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Speed selects the signaling state used for a scoped operation.
type Speed int

const (
	LowPower Speed = iota
	HighSpeed
)

func (s Speed) String() string {
	if s == HighSpeed {
		return "HS"
	}
	return "LP"
}

// apply returns m with the LPM flag set or cleared for s.
func (s Speed) apply(m ModeFlag) ModeFlag {
	if s == HighSpeed {
		return m &^ ModeLPM
	}
	return m | ModeLPM
}

// PixelFormat is the pixel packing used on the video stream.
type PixelFormat int

const (
	FormatRGB888 PixelFormat = iota
	FormatRGB666
	FormatRGB666Packed
	FormatRGB565
)

// BitsPerPixel returns the packed size of one pixel on the wire.
func (f PixelFormat) BitsPerPixel() int {
	switch f {
	case FormatRGB888, FormatRGB666:
		return 24
	case FormatRGB666Packed:
		return 18
	case FormatRGB565:
		return 16
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGB888:
		return "RGB888"
	case FormatRGB666:
		return "RGB666"
	case FormatRGB666Packed:
		return "RGB666_PACKED"
	case FormatRGB565:
		return "RGB565"
	default:
		return "unknown"
	}
}

// DCS opcodes used by the panel drivers in this module.
const (
	DCSNop                = 0x00
	DCSGetDisplayID       = 0x04
	DCSGetErrorCountOnDSI = 0x05
	DCSGetDisplayStatus   = 0x09
	DCSGetPowerMode       = 0x0a
	DCSGetAddressMode     = 0x0b
	DCSGetPixelFormat     = 0x0c
	DCSGetDisplayMode     = 0x0d
	DCSGetSignalMode      = 0x0e
	DCSGetDiagnostic      = 0x0f
	DCSEnterSleepMode     = 0x10
	DCSExitSleepMode      = 0x11
	DCSSetDisplayOff      = 0x28
	DCSSetDisplayOn       = 0x29
	DCSGetScanline        = 0x45
	DCSGetDisplayBright   = 0x52
	DCSGetControlDisplay  = 0x54
	DCSGetPowerSave       = 0x56
	DCSReadID1            = 0xda
	DCSReadID2            = 0xdb
	DCSReadID3            = 0xdc
)

// Device is what a peripheral announces when it attaches to the host
// controller.
type Device struct {
	Lanes  int
	Format PixelFormat
	Mode   ModeFlag
}

// Transport is one logical connection to a panel. Every call blocks until
// the packet has been transferred.
type Transport interface {
	// WritePacket sends one DCS write: opcode followed by parameters.
	// The bytes go out as a single packet and are never split.
	WritePacket(data []byte) error
	// ReadPacket issues DCS read cmd and returns at most maxLen reply bytes.
	ReadPacket(cmd byte, maxLen int) ([]byte, error)
	// SetMaxReturnPacketSize negotiates the largest reply the panel may send.
	SetMaxReturnPacketSize(n int) error
	Mode() ModeFlag
	SetMode(m ModeFlag) error
	Attach(dev Device) error
	Detach() error
}

// SleepFunc blocks for d. Production code uses time.Sleep; tests inject a
// simulated clock.
type SleepFunc func(d time.Duration)
