package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on a sub-pixel. The canvas is (Width*2) x (Height*4) sub-pixels.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// PlotPath scales the (xs[k], ys[k]) polyline to the canvas and draws it,
// y growing upwards. Points with a non-finite coordinate break the line.
func (c *Canvas) PlotPath(xs, ys []float64) {
	n := min(len(xs), len(ys))
	vx := make([]float64, 0, n)
	vy := make([]float64, 0, n)
	for k := 0; k < n; k++ {
		if finite(xs[k]) && finite(ys[k]) {
			vx, vy = append(vx, xs[k]), append(vy, ys[k])
		}
	}
	if len(vx) == 0 {
		return
	}
	xmin, xmax := bounds(vx)
	ymin, ymax := bounds(vy)
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)

	px := func(v float64) int { return int(math.Round((v - xmin) / (xmax - xmin) * w)) }
	py := func(v float64) int { return int(math.Round((ymax - v) / (ymax - ymin) * h)) }

	prevOK := false
	var lx, ly int
	for k := 0; k < n; k++ {
		if !finite(xs[k]) || !finite(ys[k]) {
			prevOK = false
			continue
		}
		x, y := px(xs[k]), py(ys[k])
		if prevOK {
			c.DrawLine(lx, ly, x, y)
		} else {
			c.Set(x, y)
		}
		lx, ly, prevOK = x, y, true
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// bounds returns a non-empty [lo, hi] covering the finite values.
func bounds(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if finite(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if lo > hi {
		return 0, 1
	}
	if hi-lo < 1e-12 {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
