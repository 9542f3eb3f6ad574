package handler

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceNumber(t *testing.T) {
	twelve := int64(12)
	neg := int64(-3)
	tests := []struct {
		name string
		in   any
		want *int64
	}{
		{name: "json number", in: float64(12), want: &twelve},
		{name: "numeric string", in: "12", want: &twelve},
		{name: "negative", in: float64(-3), want: &neg},
		{name: "blank string", in: "", want: nil},
		{name: "whitespace string", in: "   ", want: nil},
		{name: "null", in: nil, want: nil},
		{name: "garbage string", in: "twelve", want: nil},
		{name: "NaN", in: math.NaN(), want: nil},
		{name: "Inf", in: math.Inf(1), want: nil},
		{name: "bool", in: true, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceNumber(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestCoerceText(t *testing.T) {
	got := coerceText("  hello  ")
	require.NotNil(t, got)
	assert.Equal(t, "hello", *got)

	assert.Nil(t, coerceText("   "))
	assert.Nil(t, coerceText(nil))
	assert.Nil(t, coerceText(float64(3)))
}

func TestParseDateParam(t *testing.T) {
	t.Run("calendar date", func(t *testing.T) {
		got, err := parseDateParam("2026-02-10")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 2026, got.Year())
		assert.Equal(t, time.February, got.Month())
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := parseDateParam("2026-02-10T08:30:00Z")
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("blank is nil not error", func(t *testing.T) {
		got, err := parseDateParam("  ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseDateParam("10/02/2026")
		assert.Error(t, err)
	})

	// The MySQL DSN carries loc=UTC, so the driver renders every time.Time
	// argument in UTC before sending. A calendar date parsed in the host's
	// local zone would shift to the neighboring day on any non-UTC host;
	// the bound has to read the same after the conversion.
	t.Run("calendar date survives the driver's UTC conversion", func(t *testing.T) {
		shanghai, err := time.LoadLocation("Asia/Shanghai")
		require.NoError(t, err)
		orig := time.Local
		time.Local = shanghai
		defer func() { time.Local = orig }()

		got, err := parseDateParam("2025-03-01")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "2025-03-01", got.In(time.UTC).Format(dateLayout))
	})
}

func TestParseBodyDate(t *testing.T) {
	t.Run("absent defaults to now", func(t *testing.T) {
		got, err := parseBodyDate(nil)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), got, time.Minute)
	})

	t.Run("blank defaults to now", func(t *testing.T) {
		got, err := parseBodyDate("")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), got, time.Minute)
	})

	t.Run("explicit date", func(t *testing.T) {
		got, err := parseBodyDate("2026-02-10")
		require.NoError(t, err)
		assert.Equal(t, "2026-02-10", got.Format(dateLayout))
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := parseBodyDate(float64(20260210))
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := parseBodyDate("junk")
		assert.Error(t, err)
	})
}
