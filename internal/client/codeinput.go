package client

import "strings"

// Digits is the number of cells in the code input.
const Digits = 6

// CodeInput models the six single-digit cells of the OTP form. The cells
// are views over one logical value; an empty cell is a blank.
type CodeInput struct {
	cells [Digits]byte
	focus int
}

// Focus returns the index of the focused cell.
func (c *CodeInput) Focus() int { return c.focus }

// SetFocus moves focus to idx, clamped to the cell range.
func (c *CodeInput) SetFocus(idx int) { c.focus = clamp(idx) }

// Value returns the filled digits in cell order.
func (c *CodeInput) Value() string {
	var b strings.Builder
	for _, d := range c.cells {
		if d != 0 {
			b.WriteByte(d)
		}
	}
	return b.String()
}

// Cell returns the content of cell idx, "" when blank.
func (c *CodeInput) Cell(idx int) string {
	if c.cells[idx] == 0 {
		return ""
	}
	return string(c.cells[idx])
}

// Complete reports whether every cell holds a digit.
func (c *CodeInput) Complete() bool {
	for _, d := range c.cells {
		if d == 0 {
			return false
		}
	}
	return true
}

// Reset clears every cell and focuses the first.
func (c *CodeInput) Reset() {
	c.cells = [Digits]byte{}
	c.focus = 0
}

// Type handles input typed into cell idx. Non-digits are dropped; an empty
// result clears the cell. A single digit fills the cell and advances focus;
// several digits are distributed like a paste. It returns true when the
// input completed the code and should be submitted.
func (c *CodeInput) Type(idx int, v string) bool {
	idx = clamp(idx)
	digits := onlyDigits(v)
	if digits == "" {
		c.cells[idx] = 0
		c.focus = idx
		return false
	}
	wasComplete := c.Complete()
	next := c.setAt(idx, digits)
	if len(digits) == 1 {
		next = clamp(idx + 1)
	}
	c.focus = next
	return !wasComplete && c.Complete()
}

// Paste distributes the digits of text left to right starting at idx,
// dropping anything past the last cell. It returns true when the code is
// complete afterwards.
func (c *CodeInput) Paste(idx int, text string) bool {
	digits := onlyDigits(text)
	if digits == "" {
		return false
	}
	c.focus = c.setAt(clamp(idx), digits)
	return c.Complete()
}

// Backspace clears cell idx, or when it is already blank clears the
// previous cell and moves focus there.
func (c *CodeInput) Backspace(idx int) {
	idx = clamp(idx)
	if c.cells[idx] != 0 {
		c.cells[idx] = 0
		c.focus = idx
		return
	}
	if idx > 0 {
		c.cells[idx-1] = 0
		c.focus = idx - 1
	}
}

// ArrowLeft moves focus one cell left without touching the cells.
func (c *CodeInput) ArrowLeft() {
	if c.focus > 0 {
		c.focus--
	}
}

// ArrowRight moves focus one cell right.
func (c *CodeInput) ArrowRight() {
	if c.focus < Digits-1 {
		c.focus++
	}
}

// setAt writes digits from idx onward and returns the cell that should
// receive focus.
func (c *CodeInput) setAt(idx int, digits string) int {
	i := 0
	for ; i < len(digits) && idx+i < Digits; i++ {
		c.cells[idx+i] = digits[i]
	}
	return clamp(idx + i)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func clamp(idx int) int {
	switch {
	case idx < 0:
		return 0
	case idx > Digits-1:
		return Digits - 1
	}
	return idx
}
