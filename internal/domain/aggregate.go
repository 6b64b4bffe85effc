package domain

import "math"

// RatingAggregate is the denormalized rating summary stored on a product. It
// is always derived from the product's approved reviews.
type RatingAggregate struct {
	ReviewCount   int         `json:"review_count"`
	AverageRating float64     `json:"average_rating"`
	Distribution  map[int]int `json:"rating_distribution"`
}

// NewRatingAggregate derives the aggregate from per-star counts of approved
// reviews. Percentages are rounded per star and may not sum to 100.
func NewRatingAggregate(counts map[int]int) RatingAggregate {
	agg := RatingAggregate{Distribution: make(map[int]int, MaxRating)}

	var sum int
	for star := MinRating; star <= MaxRating; star++ {
		agg.ReviewCount += counts[star]
		sum += star * counts[star]
	}

	for star := MinRating; star <= MaxRating; star++ {
		if agg.ReviewCount == 0 {
			agg.Distribution[star] = 0
			continue
		}
		agg.Distribution[star] = int(math.Round(float64(counts[star]) / float64(agg.ReviewCount) * 100))
	}

	if agg.ReviewCount > 0 {
		agg.AverageRating = float64(sum) / float64(agg.ReviewCount)
	}
	return agg
}
