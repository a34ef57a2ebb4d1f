package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	// Wednesday.
	now := time.Date(2025, 4, 16, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-05-01", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{" 2025-05-01 ", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"today", time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)},
		{"tomorrow", time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC)},
		{"next monday", time.Date(2025, 4, 21, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDay(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseDay("whenever suits", now)
	assert.Error(t, err)
}

func TestOptionalDay(t *testing.T) {
	d, err := optionalDay("", time.Now())
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = optionalDay("2025-01-02", time.Now())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, time.January, d.Month())
}
