// Package analysis runs the per-brand analysis stages and assembles reports.
package analysis

import (
	"math"
	"sort"

	"github.com/octobees/brandintel/internal/entity"
)

// Breakdown converts the labelled reviews into integer percentages. When any
// review is classified the three values sum to exactly 100; otherwise all are 0.
func Breakdown(reviews []entity.MarketplaceReview) entity.SentimentBreakdown {
	var counts [3]int
	for _, r := range reviews {
		if r.SentimentLabel == nil {
			continue
		}
		switch *r.SentimentLabel {
		case entity.SentimentPositive:
			counts[0]++
		case entity.SentimentNeutral:
			counts[1]++
		case entity.SentimentNegative:
			counts[2]++
		}
	}

	total := counts[0] + counts[1] + counts[2]
	if total == 0 {
		return entity.SentimentBreakdown{}
	}

	// Largest remainder: floor every share, then hand the leftover points to
	// the largest fractional parts. Ties go to the earlier polarity.
	var (
		pct  [3]int
		rems [3]float64
		sum  int
	)
	for i, c := range counts {
		exact := float64(c) * 100 / float64(total)
		pct[i] = int(math.Floor(exact))
		rems[i] = exact - float64(pct[i])
		sum += pct[i]
	}
	order := []int{0, 1, 2}
	sort.SliceStable(order, func(a, b int) bool { return rems[order[a]] > rems[order[b]] })
	for i := 0; sum < 100; i++ {
		pct[order[i%3]]++
		sum++
	}

	return entity.SentimentBreakdown{Positive: pct[0], Neutral: pct[1], Negative: pct[2]}
}

// AverageRating is the mean of the non-null ratings rounded to two decimals,
// or 0 when no review carries a rating.
func AverageRating(reviews []entity.MarketplaceReview) float64 {
	var sum, n int
	for _, r := range reviews {
		if r.Rating == nil {
			continue
		}
		sum += *r.Rating
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*100) / 100
}
