// ABOUTME: Encoder settings: rate control mode, bitrate table and complexity
// ABOUTME: Validation reports ConfigurationErrors before any I/O happens
package encode

import (
	"strings"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

// Mode selects the encoder's rate control
type Mode int

const (
	VBR Mode = iota
	ConstrainedVBR
	HardCBR
)

func (m Mode) String() string {
	switch m {
	case VBR:
		return "vbr"
	case ConstrainedVBR:
		return "cvbr"
	case HardCBR:
		return "cbr"
	default:
		return "unknown"
	}
}

// ParseMode maps vbr, cvbr or cbr (case-insensitive) to a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vbr":
		return VBR, nil
	case "cvbr", "constrained-vbr", "constrained":
		return ConstrainedVBR, nil
	case "cbr", "hard-cbr":
		return HardCBR, nil
	default:
		return 0, transfer.Configf("encode mode", s, "expected vbr, cvbr or cbr")
	}
}

// Bitrates is the selectable bitrate table in kbps
var Bitrates = [...]int{48, 64, 96, 128, 144, 160, 176, 192, 208, 224, 240, 256}

// MaxComplexity is the highest encoder complexity
const MaxComplexity = 10

// BitrateAt returns the table bitrate at index in bits per second
func BitrateAt(index int) (int, error) {
	if index < 0 || index >= len(Bitrates) {
		return 0, transfer.Configf("bitrate index", index, "must be between 0 and %d", len(Bitrates)-1)
	}
	return Bitrates[index] * 1000, nil
}

// Settings are the user-facing encoder parameters
type Settings struct {
	Mode         Mode
	BitrateIndex int
	Complexity   int
}

// DefaultSettings returns VBR at 128 kbps with maximum complexity
func DefaultSettings() Settings {
	return Settings{Mode: VBR, BitrateIndex: 3, Complexity: MaxComplexity}
}

// Validate checks every field
func (s Settings) Validate() error {
	switch s.Mode {
	case VBR, ConstrainedVBR, HardCBR:
	default:
		return transfer.Configf("encode mode", int(s.Mode), "unrecognized")
	}
	if _, err := BitrateAt(s.BitrateIndex); err != nil {
		return err
	}
	if s.Complexity < 0 || s.Complexity > MaxComplexity {
		return transfer.Configf("complexity", s.Complexity, "must be between 0 and %d", MaxComplexity)
	}
	return nil
}

// Bitrate returns the selected bitrate in bits per second
func (s Settings) Bitrate() int {
	bps, _ := BitrateAt(s.BitrateIndex)
	return bps
}

// Setting identifies an encoder control
type Setting int

const (
	SettingVBR Setting = iota
	SettingVBRConstraint
	SettingComplexity
	SettingBitrate
)

func (s Setting) String() string {
	switch s {
	case SettingVBR:
		return "vbr"
	case SettingVBRConstraint:
		return "vbr constraint"
	case SettingComplexity:
		return "complexity"
	case SettingBitrate:
		return "bitrate"
	default:
		return "unknown"
	}
}

// Control is one setting and its value
type Control struct {
	Setting Setting
	Value   int
}

// Controls expands settings into the ordered encoder controls: VBR flag,
// VBR constraint flag, complexity, then bitrate in bits per second
func (s Settings) Controls() []Control {
	return []Control{
		{SettingVBR, boolInt(s.Mode != HardCBR)},
		{SettingVBRConstraint, boolInt(s.Mode == ConstrainedVBR)},
		{SettingComplexity, s.Complexity},
		{SettingBitrate, s.Bitrate()},
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
