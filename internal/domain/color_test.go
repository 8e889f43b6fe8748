package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	orRdLightest = "#fff7ec"
	orRdDarkest  = "#7f0000"
)

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#fc8d59")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 0xfc, G: 0x8d, B: 0x59}, c)
	assert.Equal(t, "#fc8d59", c.Hex())

	c, err = ParseHex("7f0000")
	require.NoError(t, err)
	assert.Equal(t, orRdDarkest, c.Hex())

	_, err = ParseHex("#fff")
	require.Error(t, err)
	_, err = ParseHex("#gggggg")
	require.Error(t, err)
}

func TestNewRamp_TooFewStops(t *testing.T) {
	_, err := NewRamp([]string{"#000000"})
	require.Error(t, err)
}

func TestNewRamp_BadStop(t *testing.T) {
	_, err := NewRamp([]string{"#000000", "nope"})
	require.Error(t, err)
}

func TestRamp_At(t *testing.T) {
	r := DefaultRamp

	assert.Equal(t, orRdLightest, r.At(0).Hex())
	assert.Equal(t, orRdDarkest, r.At(1).Hex())
	assert.Equal(t, "#fc8d59", r.At(0.5).Hex(), "midpoint lands on the middle stop")
	assert.Equal(t, orRdLightest, r.At(-3).Hex())
	assert.Equal(t, orRdDarkest, r.At(7).Hex())
	assert.Equal(t, orRdLightest, r.At(math.NaN()).Hex())
}

func TestRamp_TwoStops(t *testing.T) {
	r, err := NewRamp([]string{"#000000", "#ffffff"})
	require.NoError(t, err)
	assert.Equal(t, "#808080", r.At(0.5).Hex())
}

func TestColorScale(t *testing.T) {
	t.Run("domain follows max", func(t *testing.T) {
		s := NewColorScale(nil, 50)
		lo, hi := s.Domain()
		assert.Equal(t, 0.0, lo)
		assert.Equal(t, 50.0, hi)
		assert.False(t, s.Degenerate())
	})

	t.Run("max maps to the upper endpoint", func(t *testing.T) {
		s := NewColorScale(nil, 50)
		assert.Equal(t, orRdDarkest, s.Color(50).Hex())
		assert.Equal(t, orRdLightest, s.Color(0).Hex())
	})

	t.Run("interpolates between stops", func(t *testing.T) {
		s := NewColorScale(nil, 50)
		assert.Equal(t, "#fddcaf", s.Color(10).Hex())
	})

	t.Run("collapsed domain uses the zero color", func(t *testing.T) {
		s := NewColorScale(nil, 0)
		assert.True(t, s.Degenerate())
		assert.Equal(t, s.Zero(), s.Color(0))
		assert.Equal(t, s.Zero(), s.Color(12))
		assert.Equal(t, orRdLightest, s.Zero().Hex())
	})

	t.Run("larger counts are darker", func(t *testing.T) {
		s := NewColorScale(nil, 50)
		assert.Less(t, luminance(s.Color(50)), luminance(s.Color(10)))
		assert.Less(t, luminance(s.Color(10)), luminance(s.Color(0)))
	})
}

func luminance(c Color) float64 {
	return 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
}
