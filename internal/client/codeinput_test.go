package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeInput_TypeAdvances(t *testing.T) {
	var c CodeInput
	for i, d := range []string{"1", "2", "3", "4", "5"} {
		assert.False(t, c.Type(i, d))
		assert.Equal(t, i+1, c.Focus())
	}
	assert.True(t, c.Type(5, "6"), "last digit auto-submits")
	assert.Equal(t, 5, c.Focus())
	assert.Equal(t, "123456", c.Value())
	assert.True(t, c.Complete())
}

func TestCodeInput_TypeIgnoresNonDigits(t *testing.T) {
	var c CodeInput
	c.Type(0, "7")
	c.Type(1, "x")
	assert.Equal(t, "7", c.Value())
	assert.Equal(t, "", c.Cell(1))
	assert.Equal(t, 1, c.Focus())
}

func TestCodeInput_PasteDistributesAndTruncates(t *testing.T) {
	var c CodeInput
	c.SetFocus(2)
	assert.False(t, c.Paste(2, "98-76 54"))
	assert.Equal(t, []string{"", "", "9", "8", "7", "6"}, cells(&c))
	assert.Equal(t, 5, c.Focus())

	c.Reset()
	assert.True(t, c.Paste(0, "123456789"))
	assert.Equal(t, "123456", c.Value())

	c.Reset()
	assert.False(t, c.Paste(0, "abc"))
	assert.Equal(t, "", c.Value())
}

func TestCodeInput_MultiCharTypeActsLikePaste(t *testing.T) {
	var c CodeInput
	assert.False(t, c.Type(1, "45"))
	assert.Equal(t, []string{"", "4", "5", "", "", ""}, cells(&c))
	assert.Equal(t, 3, c.Focus())
}

func TestCodeInput_Backspace(t *testing.T) {
	var c CodeInput
	c.Paste(0, "1234")

	c.Backspace(3)
	assert.Equal(t, []string{"1", "2", "3", "", "", ""}, cells(&c))
	assert.Equal(t, 3, c.Focus())

	c.Backspace(3)
	assert.Equal(t, []string{"1", "2", "", "", "", ""}, cells(&c))
	assert.Equal(t, 2, c.Focus())

	var empty CodeInput
	empty.Backspace(0)
	assert.Equal(t, 0, empty.Focus())
}

func TestCodeInput_ArrowsDoNotMutate(t *testing.T) {
	var c CodeInput
	c.Paste(0, "12")
	c.SetFocus(0)

	c.ArrowLeft()
	assert.Equal(t, 0, c.Focus())
	for i := 0; i < 10; i++ {
		c.ArrowRight()
	}
	assert.Equal(t, 5, c.Focus())
	assert.Equal(t, "12", c.Value())
}

func TestCodeInput_RetypeCompleteDoesNotResubmit(t *testing.T) {
	var c CodeInput
	c.Paste(0, "123456")
	assert.False(t, c.Type(2, "9"))
	assert.Equal(t, "129456", c.Value())
}

func cells(c *CodeInput) []string {
	out := make([]string, Digits)
	for i := range out {
		out[i] = c.Cell(i)
	}
	return out
}
