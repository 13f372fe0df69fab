package media

import "math"

// ANSIColor is one of the eight basic terminal colours.
type ANSIColor int

// Basic terminal colours in ANSI order.
const (
	Black ANSIColor = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

var ansiNames = [...]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

func (c ANSIColor) String() string {
	if c < 0 || int(c) >= len(ansiNames) {
		return "unknown"
	}
	return ansiNames[c]
}

// ParseANSI is the inverse of ANSIColor.String.
func ParseANSI(name string) (ANSIColor, bool) {
	for i, n := range ansiNames {
		if n == name {
			return ANSIColor(i), true
		}
	}
	return Black, false
}

// reference values approximate how terminals render the basic colours.
var palette = []struct {
	color ANSIColor
	rgb   RGB
}{
	{Black, RGB{0, 0, 0}},
	{Red, RGB{220, 30, 30}},
	{Green, RGB{30, 200, 30}},
	{Yellow, RGB{230, 220, 30}},
	{Blue, RGB{30, 30, 220}},
	{Magenta, RGB{210, 30, 210}},
	{Cyan, RGB{30, 210, 210}},
	{White, RGB{220, 220, 220}},
}

// NearestANSI maps c to the closest basic terminal colour by weighted HSV
// distance. Black is reported as White.
func NearestANSI(c RGB) ANSIColor {
	best, bestDist := White, math.MaxFloat64
	for _, p := range palette {
		if d := hsvDistance(c, p.rgb); d < bestDist {
			best, bestDist = p.color, d
		}
	}
	if best == Black {
		return White
	}
	return best
}

func hsvDistance(a, b RGB) float64 {
	h1, s1, v1 := a.HSV()
	h2, s2, v2 := b.HSV()
	dh := math.Abs(h1 - h2)
	dh = math.Min(dh, 1-dh)
	return 0.6*dh + 0.3*math.Abs(s1-s2) + 0.1*math.Abs(v1-v2)
}
