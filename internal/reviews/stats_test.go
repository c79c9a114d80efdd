package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStats(t *testing.T) {
	t.Run("no reviews", func(t *testing.T) {
		s := deriveStats(map[int]int{})
		assert.Equal(t, 0, s.TotalReviews)
		assert.Equal(t, 0.0, s.AverageRating)
		assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, s.Distribution)
	})

	t.Run("mixed ratings round to one decimal", func(t *testing.T) {
		// 5,5,4,2 -> 16/4 = 4.0
		s := deriveStats(map[int]int{5: 2, 4: 1, 2: 1})
		assert.Equal(t, 4, s.TotalReviews)
		assert.Equal(t, 4.0, s.AverageRating)
		assert.Equal(t, map[int]int{1: 0, 2: 1, 3: 0, 4: 1, 5: 2}, s.Distribution)
	})

	t.Run("repeating average rounds", func(t *testing.T) {
		// 5,5,4 -> 14/3 = 4.666... -> 4.7
		s := deriveStats(map[int]int{5: 2, 4: 1})
		assert.Equal(t, 4.7, s.AverageRating)
	})
}
