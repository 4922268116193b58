package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  Owner@Example.COM ", "owner@example.com", true},
		{"ops+weekly@brand.co.in", "ops+weekly@brand.co.in", true},
		{"no-at-sign.example.com", "", false},
		{"user@localhost", "", false},
		{"user@-bad.com", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeEmail(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizePhone(t *testing.T) {
	got, ok := NormalizePhone("081234 56789", "IN")
	assert.True(t, ok)
	assert.Equal(t, "+918123456789", got)

	got, ok = NormalizePhone("+44 121 234 5678", "IN")
	assert.True(t, ok)
	assert.Equal(t, "+441212345678", got)

	_, ok = NormalizePhone("12", "IN")
	assert.False(t, ok)

	_, ok = NormalizePhone("  ", "IN")
	assert.False(t, ok)
}
