package chart

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Colormap maps a position in [0, 1] to a colour.
type Colormap struct {
	Name  string
	stops []drawing.Color
}

var colormaps = map[string]Colormap{
	"Blues":   newColormap("Blues", "f7fbff", "6baed6", "08306b"),
	"Greens":  newColormap("Greens", "f7fcf5", "74c476", "00441b"),
	"Oranges": newColormap("Oranges", "fff5eb", "fd8d3c", "7f2704"),
	"Reds":    newColormap("Reds", "fff5f0", "fb6a4a", "67000d"),
	"Greys":   newColormap("Greys", "ffffff", "969696", "000000"),
	"Purples": newColormap("Purples", "fcfbfd", "9e9ac8", "3f007d"),
}

func newColormap(name string, hex ...string) Colormap {
	cm := Colormap{Name: name}
	for _, h := range hex {
		cm.stops = append(cm.stops, drawing.ColorFromHex(h))
	}
	return cm
}

// LookupColormap returns the named colormap.
func LookupColormap(name string) (Colormap, error) {
	cm, ok := colormaps[name]
	if !ok {
		return Colormap{}, fmt.Errorf("unknown colormap %q", name)
	}
	return cm, nil
}

// At interpolates the colour at t; values outside [0, 1] are clamped.
func (c Colormap) At(t float64) drawing.Color {
	if len(c.stops) == 0 {
		return drawing.ColorBlack
	}
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if len(c.stops) == 1 {
		return c.stops[0]
	}

	pos := t * float64(len(c.stops)-1)
	i := int(pos)
	if i >= len(c.stops)-1 {
		return c.stops[len(c.stops)-1]
	}
	frac := pos - float64(i)
	a, b := c.stops[i], c.stops[i+1]
	return drawing.Color{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 255,
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
