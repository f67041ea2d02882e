package review

import (
	"math"
	"strconv"
)

// Summary aggregates the ratings of one campsite.
type Summary struct {
	Total     int
	Average   float64
	Breakdown map[string]int
}

// Summarize computes the count, the average rounded to one decimal and the
// per-star breakdown. Every star from 1 to 5 is present in the breakdown.
func Summarize(ratings []int) Summary {
	s := Summary{Total: len(ratings), Breakdown: make(map[string]int, MaxRating)}
	for star := MinRating; star <= MaxRating; star++ {
		s.Breakdown[strconv.Itoa(star)] = 0
	}
	if len(ratings) == 0 {
		return s
	}

	sum := 0
	for _, r := range ratings {
		sum += r
		s.Breakdown[strconv.Itoa(r)]++
	}
	s.Average = RoundRating(float64(sum) / float64(len(ratings)))
	return s
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
