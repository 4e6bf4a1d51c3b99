package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"0501234567", "+972501234567"},
		{"050-123 4567", "+972501234567"},
		{"+972 50 123 4567", "+972501234567"},
		{"00972501234567", "+972501234567"},
		{"+1 (415) 555-0100", "+14155550100"},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.raw, "972")
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	for _, raw := range []string{"", "abc", "0123", "+1234567890123456"} {
		_, err := NormalizePhone(raw, "972")
		assert.ErrorIs(t, err, ErrInvalidPhone, raw)
	}
}
