package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"zulu suffix", "2025-06-01T10:30:00Z", time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)},
		{"numeric offset", "2025-06-01T10:30:00+02:00", time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)},
		{"no zone designator", "2025-06-01T10:30:00", time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, input := range []string{"", "not a timestamp", "2025-13-45T99:00:00Z", "June 1st 2025"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTimestamp(input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid ISO-8601 timestamp")
		})
	}
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	in := time.Date(2025, 6, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	formatted := FormatTimestamp(in)
	assert.Equal(t, "2025-06-01T08:30:00Z", formatted)

	parsed, err := ParseTimestamp(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(in.Truncate(time.Second)))
}
