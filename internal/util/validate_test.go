package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.com", "first.last@example.co.uk", "x+tag@sub.domain.io"}
	invalid := []string{"", "plain", "a@b", "a b@c.com", "@b.com", "a@.com@", "a@b .com"}

	for _, e := range valid {
		assert.True(t, ValidateEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, ValidateEmail(e), e)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"ab@example.com":  "a*@example.com",
		"a@example.com":   "a*@example.com",
		"abc@x.io":        "a*c@x.io",
		"abcdef@x.io":     "a****f@x.io",
		"not-an-email":    "not-an-email",
		"jürgen@mail.de":  "j****n@mail.de",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskEmail(in), in)
	}
}
