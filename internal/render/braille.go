package render

import "strings"

const brailleBlank = 0x2800

// Dot bits of a braille cell, two columns by four rows.
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Braille is a character grid addressed in sub-pixels: each cell holds a
// 2x4 dot matrix, so the drawable area is (Cols*2) x (Rows*4).
type Braille struct {
	Cols, Rows int
	Grid       [][]rune
}

func NewBraille(cols, rows int) *Braille {
	b := &Braille{Cols: cols, Rows: rows, Grid: make([][]rune, rows)}
	for i := range b.Grid {
		b.Grid[i] = make([]rune, cols)
	}
	b.Clear()
	return b
}

func (b *Braille) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= b.Cols || row >= b.Rows {
		return
	}
	b.Grid[row][col] |= brailleDots[y%4][x%2]
}

func (b *Braille) Clear() {
	for i := range b.Grid {
		for j := range b.Grid[i] {
			b.Grid[i][j] = brailleBlank
		}
	}
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (b *Braille) Line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		b.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
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

func (b *Braille) String() string {
	var sb strings.Builder
	for _, row := range b.Grid {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
