// Package gradebook computes period and year averages under the 2018 grading
// rules: regular scores weigh 1, the midterm 2 and the final exam 3.
package gradebook

import (
	"math"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

const (
	MinScore = 0.0
	MaxScore = 10.0

	regularWeight = 1
	midtermWeight = 2
	finalWeight   = 3
)

// PeriodAverage returns the weighted semester average, or nil when no score
// has been entered.
func PeriodAverage(score models.PeriodScore) *float64 {
	total, weight := 0.0, 0
	for _, v := range score.Regular {
		if v == nil {
			continue
		}
		total += *v * regularWeight
		weight += regularWeight
	}
	if score.Midterm != nil {
		total += *score.Midterm * midtermWeight
		weight += midtermWeight
	}
	if score.Final != nil {
		total += *score.Final * finalWeight
		weight += finalWeight
	}
	if weight == 0 {
		return nil
	}
	avg := Round1(total / float64(weight))
	return &avg
}

// YearAverage combines semester averages with the second semester counted
// twice. A single available average passes through.
func YearAverage(hk1, hk2 *float64) *float64 {
	switch {
	case hk1 == nil && hk2 == nil:
		return nil
	case hk2 == nil:
		v := Round1(*hk1)
		return &v
	case hk1 == nil:
		v := Round1(*hk2)
		return &v
	}
	v := Round1((*hk1 + 2*(*hk2)) / 3)
	return &v
}

// ValidateScore rejects values outside [0, 10].
func ValidateScore(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < MinScore || v > MaxScore {
		return appErrors.ErrScoreOutOfRange
	}
	return nil
}

// Round1 rounds half-up to one decimal place.
func Round1(v float64) float64 {
	// the epsilon absorbs binary error in values such as 6.65
	return math.Floor(v*10+0.5+1e-9) / 10
}
