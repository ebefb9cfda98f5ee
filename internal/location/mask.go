package location

import "fmt"

// Mask is a row-major boolean grid selecting the pixels that carry a point.
type Mask struct {
	Height int
	Width  int
	cells  []bool
}

// NewMask returns an all-false mask of the given size.
func NewMask(height, width int) *Mask {
	return &Mask{Height: height, Width: width, cells: make([]bool, height*width)}
}

// MaskFromRows builds a mask from a slice of equally long rows.
func MaskFromRows(rows [][]bool) (*Mask, error) {
	if len(rows) == 0 {
		return NewMask(0, 0), nil
	}
	m := NewMask(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.Width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrConfiguration, i, len(row), m.Width)
		}
		copy(m.cells[i*m.Width:], row)
	}
	return m, nil
}

// At reports whether pixel (row, col) is selected. Out-of-range pixels are
// never selected.
func (m *Mask) At(row, col int) bool {
	if row < 0 || col < 0 || row >= m.Height || col >= m.Width {
		return false
	}
	return m.cells[row*m.Width+col]
}

// Set selects or clears pixel (row, col).
func (m *Mask) Set(row, col int, v bool) {
	m.cells[row*m.Width+col] = v
}

// Count returns the number of selected pixels.
func (m *Mask) Count() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the mask.
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Height, m.Width)
	copy(c.cells, m.cells)
	return c
}

// Cells returns a copy of the row-major cells.
func (m *Mask) Cells() []bool {
	out := make([]bool, len(m.cells))
	copy(out, m.cells)
	return out
}

// Validate checks the border invariant: no selected pixel on the last row
// or the last column.
func (m *Mask) Validate() error {
	if m.Height == 0 || m.Width == 0 {
		return nil
	}
	for col := 0; col < m.Width; col++ {
		if m.At(m.Height-1, col) {
			return fmt.Errorf("%w: mask reaches the bottom image edge at column %d", ErrConfiguration, col)
		}
	}
	for row := 0; row < m.Height; row++ {
		if m.At(row, m.Width-1) {
			return fmt.Errorf("%w: mask reaches the right image edge at row %d", ErrConfiguration, row)
		}
	}
	return nil
}
