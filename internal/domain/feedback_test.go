package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSatisfactionForRating(t *testing.T) {
	assert.Equal(t, HighlySatisfied, SatisfactionForRating(5))
	assert.Equal(t, Satisfied, SatisfactionForRating(4))
	assert.Equal(t, Neutral, SatisfactionForRating(3))
	assert.Equal(t, Dissatisfied, SatisfactionForRating(2))
	assert.Equal(t, HighlyDissatisfied, SatisfactionForRating(1))
}
