package reviews

import "math"

// deriveStats folds per-rating counts into the aggregate shown next to a
// product. The average is rounded to one decimal place and every rating 1..5
// appears in the distribution even when its count is zero.
func deriveStats(counts map[int]int) Stats {
	s := Stats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for rating := 1; rating <= 5; rating++ {
		n := counts[rating]
		s.Distribution[rating] = n
		s.TotalReviews += n
		sum += rating * n
	}
	if s.TotalReviews > 0 {
		s.AverageRating = math.Round(float64(sum)/float64(s.TotalReviews)*10) / 10
	}
	return s
}
