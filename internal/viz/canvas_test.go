package viz

import (
	"math"
	"strings"
	"testing"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(10, 10)

	if c.Grid[0][0] != rune(brailleBlank|0x1) {
		t.Errorf("cell 0 = %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != rune(brailleBlank|0x80) {
		t.Errorf("cell 1 = %U", c.Grid[0][1])
	}

	c.Clear()
	if strings.Trim(c.String(), "⠀\n") != "" {
		t.Error("clear left pixels on")
	}
}

func TestPlotPathCorners(t *testing.T) {
	c := NewCanvas(4, 2)
	c.PlotPath([]float64{0, 1, math.NaN()}, []float64{0, 1, 5})

	// (0,0) maps to the bottom-left sub-pixel, (1,1) to the top-right.
	if c.Grid[1][0]&0x40 == 0 {
		t.Error("bottom-left pixel not set")
	}
	if c.Grid[0][3]&0x8 == 0 {
		t.Error("top-right pixel not set")
	}
}

func TestBoundsDegenerate(t *testing.T) {
	lo, hi := bounds([]float64{2, 2})
	if !(lo < 2 && hi > 2) {
		t.Errorf("constant data should be padded, got [%v, %v]", lo, hi)
	}
	lo, hi = bounds([]float64{math.NaN()})
	if lo != 0 || hi != 1 {
		t.Errorf("no finite data should give [0,1], got [%v, %v]", lo, hi)
	}
}
