package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-12")
	require.NoError(t, err)
	assert.Equal(t, Month{Year: 2024, Month: time.December}, m)
	assert.Equal(t, "2024-12", m.String())

	for _, bad := range []string{"", "2024-13", "2024/01", "24-01", "2024-1"} {
		_, err := ParseMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestMonth_Bounds(t *testing.T) {
	m := Month{Year: 2024, Month: time.February}

	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 999999999, time.UTC), m.End())
	assert.Equal(t, "2024-03", m.Next().String())
	assert.Equal(t, "2025-01", Month{Year: 2024, Month: time.December}.Next().String())
	assert.True(t, m.Before(m.Next()))
	assert.False(t, m.Next().Before(m))
}
