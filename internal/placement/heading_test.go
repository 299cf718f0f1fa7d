package placement

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadingPolicy_Fixed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := HeadingPolicy{Mode: Fixed, Angle: -90}
	assert.Equal(t, 270.0, h.Sample(rng))
}

func TestHeadingPolicy_FixedWithNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := HeadingPolicy{Mode: FixedWithNoise, Angle: 180, Noise: 30}
	for i := 0; i < 100; i++ {
		v := h.Sample(rng)
		assert.GreaterOrEqual(t, v, 150.0)
		assert.LessOrEqual(t, v, 210.0)
	}
}

func TestHeadingPolicy_Random360(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := HeadingPolicy{}
	for i := 0; i < 100; i++ {
		v := h.Sample(rng)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 360.0)
	}
}

func TestParseHeadingMode(t *testing.T) {
	tests := map[string]HeadingMode{
		"random360":      Random360,
		"Fixed":          Fixed,
		"fixedWithNoise": FixedWithNoise,
	}
	for in, want := range tests {
		got, err := ParseHeadingMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	assert.Equal(t, "fixedWithNoise", FixedWithNoise.String())

	_, err := ParseHeadingMode("sideways")
	assert.Error(t, err)
}
