package competition_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// ROUNDING POLICY TESTS
// =============================================================================

func TestApplyRounding_Policies(t *testing.T) {
	cases := []struct {
		name   string
		value  string
		method competition.RoundingMethod
		places int32
		want   string
	}{
		{"up rounds half boundary to ceiling", "2.345", competition.RoundUp, 2, "2.35"},
		{"down truncates half boundary", "2.345", competition.RoundDown, 2, "2.34"},
		{"nearest rounds half away from zero", "2.345", competition.RoundNearest, 2, "2.35"},
		{"nearest below half rounds down", "2.344", competition.RoundNearest, 2, "2.34"},
		{"nearest negative half away from zero", "-2.345", competition.RoundNearest, 2, "-2.35"},
		{"up on exact value is identity", "2.35", competition.RoundUp, 2, "2.35"},
		{"down on negative goes toward minus infinity", "-2.341", competition.RoundDown, 2, "-2.35"},
		{"zero places", "17.6", competition.RoundNearest, 0, "18"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := competition.ApplyRounding(dec(tc.value), tc.method, tc.places)
			assert.True(t, got.Equal(dec(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestApplyRounding_Deterministic(t *testing.T) {
	// The half case must produce the same answer on every call.
	first := competition.ApplyRounding(dec("2.345"), competition.RoundNearest, 2)
	for i := 0; i < 10; i++ {
		again := competition.ApplyRounding(dec("2.345"), competition.RoundNearest, 2)
		require.True(t, first.Equal(again))
	}
}

// =============================================================================
// ADJUSTMENT TESTS
// =============================================================================

func TestApplyAdjustment(t *testing.T) {
	cases := []struct {
		name string
		base string
		pct  string
		want string
	}{
		{"zero percent is identity", "100", "0", "100"},
		{"ten percent up", "100", "10", "110"},
		{"negative percent lowers", "200", "-5", "190"},
		{"fractional percentage", "150", "2.5", "153.75"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := competition.ApplyAdjustment(dec(tc.base), dec(tc.pct))
			assert.True(t, got.Equal(dec(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestParseRoundingMethod_Invalid(t *testing.T) {
	_, err := competition.ParseRoundingMethod("banker")
	require.Error(t, err)
	assert.True(t, competition.IsValidation(err))
}
