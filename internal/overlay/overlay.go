// Package overlay maps the neuroticism score to a regulation state.
package overlay

// #region types
// Overlay is the three-state regulation classification.
type Overlay string

const (
	RegPlus  Overlay = "Reg+" // calm, low neuroticism
	RegZero  Overlay = "Reg0"
	RegMinus Overlay = "Reg-" // stressed, high neuroticism
)

// NeuroticismCode returns the equivalent N-/N0/N+ label.
func (o Overlay) NeuroticismCode() string {
	switch o {
	case RegPlus:
		return "N-"
	case RegMinus:
		return "N+"
	default:
		return "N0"
	}
}

// Norms is the normative neuroticism distribution on the common 1..5 scale.
type Norms struct {
	Mean float64
	SD   float64
}

// Config pins norms and the z cutoff for one engine version.
type Config struct {
	Norms  Norms
	Cutoff float64
}

// DefaultConfig returns the production norms.
func DefaultConfig() Config {
	return Config{Norms: Norms{Mean: 3.0, SD: 1.0}, Cutoff: 0.5}
}

// #endregion types

// #region classify
// Z standardizes a raw neuroticism mean. With no neuroticism answers
// (answered == 0) or a degenerate SD it returns 0.
func Z(raw float64, answered int, n Norms) float64 {
	if answered == 0 || n.SD <= 0 {
		return 0
	}
	return (raw - n.Mean) / n.SD
}

// Classify maps z to an overlay. Boundaries fall into Reg0.
func Classify(z float64, cfg Config) Overlay {
	switch {
	case z < -cfg.Cutoff:
		return RegPlus
	case z > cfg.Cutoff:
		return RegMinus
	default:
		return RegZero
	}
}

// #endregion classify
