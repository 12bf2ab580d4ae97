package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDiceSet(t *testing.T) {
	t.Parallel()

	dice := newDiceSet()

	assert.Len(t, dice, 10)
	for i, d := range dice {
		assert.Equal(t, i, d.ID)
		assert.Equal(t, ColorYellow, d.Color)
		assert.False(t, d.Locked)
	}
}

func TestDieFaces_Distribution(t *testing.T) {
	t.Parallel()

	counts := map[DieColor]int{}
	for _, face := range dieFaces {
		counts[face]++
	}

	assert.Equal(t, 3, counts[ColorGreen])
	assert.Equal(t, 2, counts[ColorYellow])
	assert.Equal(t, 1, counts[ColorRed])
}
