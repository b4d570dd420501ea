package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const wrapTolerance = 1e-12

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"below_range", -1.0, 0.0, 1.0, 0.0},
		{"above_range", 2.0, 0.0, 1.0, 1.0},
		{"inside_range", 0.5, 0.0, 1.0, 0.5},
		{"at_lower_bound", 0.0, 0.0, 1.0, 0.0},
		{"at_upper_bound", 1.0, 0.0, 1.0, 1.0},
		{"negative_range", -5.0, -10.0, -1.0, -5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clamp(tt.v, tt.lo, tt.hi))
		})
	}
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(0.0))
	assert.True(t, IsFinite(-123.456))
	assert.True(t, IsFinite(math.MaxFloat64))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(1)))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestSanitizeFloat(t *testing.T) {
	assert.Equal(t, 1.5, SanitizeFloat(1.5, 0.0))
	assert.Equal(t, 0.25, SanitizeFloat(math.NaN(), 0.25))
	assert.Equal(t, -1.0, SanitizeFloat(math.Inf(1), -1.0))
}

func TestWrapPi(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  float64
	}{
		{"zero", 0.0, 0.0},
		{"already_wrapped", 1.0, 1.0},
		{"at_pi", math.Pi, math.Pi},
		{"just_past_pi", math.Pi + 0.1, -math.Pi + 0.1},
		{"at_negative_pi", -math.Pi, math.Pi},
		{"one_full_turn", Tau + 0.5, 0.5},
		{"two_turns_negative", -2.0*Tau - 0.5, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WrapPi(tt.angle), wrapTolerance)
		})
	}
}

func TestWrapPi_Range(t *testing.T) {
	for angle := -50.0; angle <= 50.0; angle += 0.37 {
		w := WrapPi(angle)
		assert.Greater(t, w, -math.Pi, "WrapPi(%f) below open bound", angle)
		assert.LessOrEqual(t, w, math.Pi, "WrapPi(%f) above closed bound", angle)
	}
}

func TestWrapPi_NonFinite(t *testing.T) {
	assert.Equal(t, 0.0, WrapPi(math.NaN()))
	assert.Equal(t, 0.0, WrapPi(math.Inf(1)))
}

func TestWrapTau(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  float64
	}{
		{"zero", 0.0, 0.0},
		{"inside", 3.0, 3.0},
		{"negative", -1.0, Tau - 1.0},
		{"full_turn", Tau, 0.0},
		{"many_turns", 5.0*Tau + 1.0, 1.0},
		{"negative_turns", -3.0*Tau - 0.25, Tau - 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WrapTau(tt.angle), wrapTolerance)
		})
	}
}

func TestWrapTau_Range(t *testing.T) {
	for angle := -100.0; angle <= 100.0; angle += 0.73 {
		w := WrapTau(angle)
		assert.GreaterOrEqual(t, w, 0.0, "WrapTau(%f) negative", angle)
		assert.Less(t, w, Tau, "WrapTau(%f) at or above Tau", angle)
	}
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 0.0, Lerp(0, 1, 0))
	assert.Equal(t, 1.0, Lerp(0, 1, 1))
	assert.Equal(t, 0.5, Lerp(0, 1, 0.5))
	assert.InDelta(t, 2.5, Lerp(2, 4, 0.25), wrapTolerance)
}
