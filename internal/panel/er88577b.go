package panel

import (
	"time"

	"dsipanel/internal/dsi"
)

// ER88577B-based Easy Quick EQT700HKY008P, 800x1280 over four lanes.

// er88577bInit is the vendor init sequence. The controller leaves its
// register page protection (E0/E1) open until F3.
var er88577bInit = []Op{
	Write(0xE0, 0xAB, 0xBA),
	Write(0xE1, 0xBA, 0xAB),
	Write(0xB1, 0x10, 0x01, 0x47, 0xFF),
	Write(0xB2, 0x0C, 0x14, 0x04, 0x50, 0x50, 0x14),
	Write(0xB3, 0x56, 0xD3, 0x00),
	Write(0xB4, 0x22, 0x30, 0x04),
	Write(0xB6, 0xB0, 0x00, 0x00, 0x10, 0x00, 0x10, 0x00),
	Write(0xB7, 0x0E, 0x00, 0xFF, 0x08, 0x08, 0xFF, 0xFF, 0x00),
	Write(0xB8, 0x05, 0x12, 0x29, 0x49, 0x48),
	Write(0xB9,
		0x7F, 0x69, 0x57, 0x4C, 0x47, 0x37, 0x3C, 0x25, 0x3E, 0x3C, 0x3B, 0x58, 0x45, 0x4D, 0x40, 0x3F, 0x35, 0x27, 0x06,
		0x7F, 0x69, 0x57, 0x4C, 0x47, 0x37, 0x3C, 0x25, 0x3E, 0x3C, 0x3B, 0x58, 0x45, 0x4D, 0x40, 0x3F, 0x35, 0x27, 0x06),
	Write(0xC0, 0x98, 0x76, 0x12, 0x34, 0x33, 0x33, 0x44, 0x44, 0x06, 0x04, 0x8A, 0x04, 0x0F, 0x00, 0x00, 0x00),
	Write(0xC1, 0x53, 0x94, 0x02, 0x85, 0x06, 0x04, 0x8A, 0x04, 0x54, 0x00),
	Write(0xC2, 0x37, 0x09, 0x08, 0x89, 0x08, 0x11, 0x22, 0x21, 0x44, 0xBB, 0x18, 0x00),
	Write(0xC3, 0x9C, 0x1D, 0x1E, 0x1F, 0x10, 0x12, 0x0C, 0x0E, 0x05, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x07, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24),
	Write(0xC4, 0x1C, 0x1D, 0x1E, 0x1F, 0x11, 0x13, 0x0D, 0x0F, 0x04, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24, 0x06, 0x24, 0x24, 0x24, 0x24, 0x24, 0x24),
	Write(0xC6, 0x28, 0x28),
	Write(0xC7, 0x41, 0x01, 0x0D, 0x11, 0x09, 0x15, 0x19, 0x4F, 0x10, 0xD7, 0xCF, 0x19, 0x1B, 0x1D, 0x03, 0x02, 0x25, 0x30, 0x00, 0x03, 0xFF, 0x00),
	Write(0xC8, 0x61, 0x00, 0x31, 0x42, 0x54, 0x16),
	Write(0xCA, 0xCB, 0x43),
	Write(0xCD, 0x0E, 0x64, 0x64, 0x20, 0x1E, 0x6B, 0x06, 0x83),
	Write(0xD2, 0xE3, 0x2B, 0x38, 0x00),
	Write(0xD4, 0x00, 0x01, 0x00, 0x0E, 0x04, 0x44, 0x08, 0x10, 0x00, 0x07, 0x00),
	Write(0xE6, 0x00, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF),
	Write(0xE7, 0x00, 0x00, 0x00),
	Write(0xF0, 0x12, 0x03, 0x20, 0x00, 0xFF),
	Write(0xF3, 0x00),
}

// er88577bSelfTest is B1 with the BIST bit set; it replaces the B1 value
// written by the init table and makes the controller draw its test pattern.
var er88577bSelfTest = []byte{0xB1, 0x11, 0x01, 0x47, 0xFF}

var easyQuickER88577B = Desc{
	Name:       "Easy Quick EQT700HKY008P (ER88577B)",
	Compatible: "easy_quick,er88577b",
	Mode: porches{
		hActive: 800, hFront: 80, hSync: 20, hBack: 80,
		vActive: 1280, vFront: 20, vSync: 4, vBack: 12,
		refresh:  60,
		widthMM:  135,
		heightMM: 216,
	}.mode(),
	Lanes:     4,
	Format:    dsi.FormatRGB888,
	ModeFlags: dsi.ModeLPM | dsi.ModeVideo | dsi.ModeVideoBurst,
	Init:      er88577bInit,
	SelfTest:  er88577bSelfTest,
	Registers: dsi.StatusRegisters,
	Delays: Delays{
		ResetSetup:               150 * time.Millisecond,
		ResetPulse:               10 * time.Millisecond,
		ResetRecovery:            150 * time.Millisecond,
		ExitSleep:                150 * time.Millisecond,
		DisplayOn:                150 * time.Millisecond,
		BacklightOffToDisplayOff: 100 * time.Millisecond,
		DisplayOff:               120 * time.Millisecond,
		EnterSleepToResetDown:    100 * time.Millisecond,
		PowerOff:                 1000 * time.Millisecond,
	},
}

// eqt700hky008p is the same glass driven from a 250 MHz / 3 pixel clock,
// which needs a wider horizontal front porch.
var eqt700hky008p = Desc{
	Name:       "Easy Quick EQT700HKY008P (83.333 MHz)",
	Compatible: "easy_quick_eqt700hky008p",
	Mode: porches{
		hActive: 800, hFront: 155, hSync: 20, hBack: 80,
		vActive: 1280, vFront: 20, vSync: 4, vBack: 12,
		clock:    83333,
		widthMM:  94,
		heightMM: 151,
	}.mode(),
	Lanes:     4,
	Format:    dsi.FormatRGB888,
	ModeFlags: dsi.ModeLPM | dsi.ModeVideo | dsi.ModeVideoBurst,
	Init:      er88577bInit,
	SelfTest:  er88577bSelfTest,
	Registers: dsi.StatusRegisters,
	Delays: Delays{
		ResetSetup:    150 * time.Millisecond,
		ResetPulse:    10 * time.Millisecond,
		ResetRecovery: 200 * time.Millisecond,
		ExitSleep:     150 * time.Millisecond,
		DisplayOn:     150 * time.Millisecond,
		DisplayOff:    120 * time.Millisecond,
		PowerOff:      120 * time.Millisecond,
	},
}

func init() {
	mustRegister(&easyQuickER88577B)
	mustRegister(&eqt700hky008p)
}
