package easing

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies an easing curve. Built-in curves use the low ids,
// scripted curves are assigned ids starting at ScriptBase.
type Type int

const (
	Linear Type = iota
	SineIn
	SineOut
	SineInOut
	QuadIn
	QuadOut
	QuadInOut
	CubicIn
	CubicOut
	CubicInOut
	QuartIn
	QuartOut
	QuartInOut
	ExpoIn
	ExpoOut
	ExpoInOut
	BackIn
	BackOut
	BackInOut

	builtinCount
)

// ScriptBase is the first id handed out to scripted easings.
const ScriptBase Type = 100

var builtinNames = [...]string{
	Linear:     "Linear",
	SineIn:     "SineIn",
	SineOut:    "SineOut",
	SineInOut:  "SineInOut",
	QuadIn:     "QuadIn",
	QuadOut:    "QuadOut",
	QuadInOut:  "QuadInOut",
	CubicIn:    "CubicIn",
	CubicOut:   "CubicOut",
	CubicInOut: "CubicInOut",
	QuartIn:    "QuartIn",
	QuartOut:   "QuartOut",
	QuartInOut: "QuartInOut",
	ExpoIn:     "ExpoIn",
	ExpoOut:    "ExpoOut",
	ExpoInOut:  "ExpoInOut",
	BackIn:     "BackIn",
	BackOut:    "BackOut",
	BackInOut:  "BackInOut",
}

func (e Type) String() string {
	if e >= 0 && e < builtinCount {
		return builtinNames[e]
	}
	if name, ok := Default.name(e); ok {
		return name
	}
	return fmt.Sprintf("Easing(%d)", int(e))
}

// Parse resolves an easing name (case-insensitive) to its Type.
func Parse(name string) (Type, error) {
	for i, n := range builtinNames {
		if strings.EqualFold(n, name) {
			return Type(i), nil
		}
	}
	if e, ok := Default.lookup(name); ok {
		return e, nil
	}
	return Linear, fmt.Errorf("unknown easing: %s", name)
}

// Calc maps a normalized time t in [0,1] through the easing curve.
// Every curve satisfies Calc(0) == 0 and Calc(1) == 1.
func Calc(t float64, e Type) float64 {
	return Default.Calc(t, e)
}

const (
	backC1 = 1.70158
	backC2 = backC1 * 1.525
	backC3 = backC1 + 1
)

func calcBuiltin(t float64, e Type) float64 {
	switch e {
	case Linear:
		return t
	case SineIn:
		return 1 - math.Cos(t*math.Pi/2)
	case SineOut:
		return math.Sin(t * math.Pi / 2)
	case SineInOut:
		return -(math.Cos(math.Pi*t) - 1) / 2
	case QuadIn:
		return t * t
	case QuadOut:
		return 1 - (1-t)*(1-t)
	case QuadInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return 1 - math.Pow(-2*t+2, 2)/2
	case CubicIn:
		return t * t * t
	case CubicOut:
		return 1 - math.Pow(1-t, 3)
	case CubicInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		return 1 - math.Pow(-2*t+2, 3)/2
	case QuartIn:
		return t * t * t * t
	case QuartOut:
		return 1 - math.Pow(1-t, 4)
	case QuartInOut:
		if t < 0.5 {
			return 8 * t * t * t * t
		}
		return 1 - math.Pow(-2*t+2, 4)/2
	case ExpoIn:
		if t == 0 {
			return 0
		}
		return math.Pow(2, 10*t-10)
	case ExpoOut:
		if t == 1 {
			return 1
		}
		return 1 - math.Pow(2, -10*t)
	case ExpoInOut:
		switch {
		case t == 0:
			return 0
		case t == 1:
			return 1
		case t < 0.5:
			return math.Pow(2, 20*t-10) / 2
		default:
			return (2 - math.Pow(2, -20*t+10)) / 2
		}
	case BackIn:
		return backC3*t*t*t - backC1*t*t
	case BackOut:
		return 1 + backC3*math.Pow(t-1, 3) + backC1*math.Pow(t-1, 2)
	case BackInOut:
		if t < 0.5 {
			return (math.Pow(2*t, 2) * ((backC2+1)*2*t - backC2)) / 2
		}
		return (math.Pow(2*t-2, 2)*((backC2+1)*(t*2-2)+backC2) + 2) / 2
	}
	return t
}

// HermiteValue evaluates a cubic Hermite segment from p0 to p1 over a span of
// dt seconds, with slopes m0 and m1 expressed in units per second.
func HermiteValue(t, p0, m0, p1, m1, dt float64) float64 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*p0 + h10*dt*m0 + h01*p1 + h11*dt*m1
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
