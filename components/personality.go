package components

import "fmt"

// PersonalityKind selects a blob's behavioral tuning.
type PersonalityKind uint8

const (
	Shy PersonalityKind = iota
	Curious
	Energetic
	numPersonalities
)

// String returns the config name of the personality.
func (k PersonalityKind) String() string {
	switch k {
	case Shy:
		return "shy"
	case Curious:
		return "curious"
	case Energetic:
		return "energetic"
	default:
		return fmt.Sprintf("personality(%d)", uint8(k))
	}
}

// ParsePersonality maps a config name to a kind.
func ParsePersonality(name string) (PersonalityKind, error) {
	switch name {
	case "shy":
		return Shy, nil
	case "curious":
		return Curious, nil
	case "energetic":
		return Energetic, nil
	}
	return 0, fmt.Errorf("unknown personality %q", name)
}

// Personality bundles the constants a blob keeps for its whole life.
type Personality struct {
	Sensitivity    float64 // scales ray attraction and received light
	RetargetRate   float64 // wander retarget probability per frame
	Expressiveness float64 // morph speed multiplier
	Damping        float64 // velocity multiplier per frame
}

// Personalities is a lookup table indexed by PersonalityKind.
type Personalities [numPersonalities]Personality

// Get returns the tuning for k, falling back to Curious for unknown kinds.
func (p *Personalities) Get(k PersonalityKind) Personality {
	if k >= numPersonalities {
		return p[Curious]
	}
	return p[k]
}

// DefaultPersonalities returns built-in tuning used when config omits a kind.
func DefaultPersonalities() Personalities {
	return Personalities{
		Shy:       {Sensitivity: 0.6, RetargetRate: 0.003, Expressiveness: 0.7, Damping: 0.965},
		Curious:   {Sensitivity: 1.0, RetargetRate: 0.006, Expressiveness: 1.0, Damping: 0.955},
		Energetic: {Sensitivity: 1.4, RetargetRate: 0.014, Expressiveness: 1.4, Damping: 0.94},
	}
}
