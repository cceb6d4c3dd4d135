package services

import (
	"fmt"
	"math"

	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxWeight is the most a set of sibling weights may add up to.
	MaxWeight = 1.0

	// sumTolerance absorbs binary rounding in sums such as 0.1+0.2+0.7.
	sumTolerance = 1e-9

	// completeEpsilon is only used to tell whether a set of weights is fully allocated.
	completeEpsilon = 1e-3
)

// WeightCheck is the outcome of adding a proposed weight to its siblings.
type WeightCheck struct {
	Valid     bool    `json:"valid"`
	Total     float64 `json:"total"`     // siblings plus the proposed weight
	Available float64 `json:"available"` // what was left before the proposed weight
	Reason    string  `json:"reason,omitempty"`
}

// WeightStatus summarises a sibling set for display.
type WeightStatus struct {
	Count     int     `json:"count"`
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
	Complete  bool    `json:"complete"`
}

func roundWeight(w float64) float64 {
	return math.Round(w*1e9) / 1e9
}

// SumWeights adds up a set of sibling weights.
func SumWeights(weights []float64) float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	return roundWeight(total)
}

// AvailableWeight is 1 minus total, floored at 0.
func AvailableWeight(total float64) float64 {
	return roundWeight(math.Max(0, MaxWeight-total))
}

// IsComplete reports whether total is 1 for display purposes.
func IsComplete(total float64) bool {
	return math.Abs(total-MaxWeight) < completeEpsilon
}

// CheckWeight validates proposed against siblings. When an existing entity is
// edited its own prior weight must not be among siblings.
func CheckWeight(siblings []float64, proposed float64) WeightCheck {
	current := SumWeights(siblings)
	res := WeightCheck{
		Total:     roundWeight(current + proposed),
		Available: AvailableWeight(current),
	}

	switch {
	case math.IsNaN(proposed) || math.IsInf(proposed, 0):
		res.Reason = "weight must be a finite number"
	case proposed < 0:
		res.Reason = "weight must not be negative"
	case proposed > MaxWeight:
		res.Reason = "weight must not exceed 1"
	case current+proposed > MaxWeight+sumTolerance:
		res.Reason = fmt.Sprintf("total weight would be %.4g, only %.4g is available", res.Total, res.Available)
	default:
		res.Valid = true
	}
	return res
}

// StatusOf builds the display summary of a sibling set.
func StatusOf(weights []float64) WeightStatus {
	total := SumWeights(weights)
	return WeightStatus{
		Count:     len(weights),
		Total:     total,
		Available: AvailableWeight(total),
		Complete:  IsComplete(total),
	}
}

// lockRow takes a row lock on the parent whose children are being reweighted.
// Concurrent writers under the same parent are serialised until the transaction ends.
func lockRow(tx *gorm.DB, dest interface{}, conds ...interface{}) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(dest, conds...).Error
}

// enforceWeight turns a failed check into a BadRequest.
func enforceWeight(what string, siblings []float64, proposed float64) error {
	res := CheckWeight(siblings, proposed)
	if !res.Valid {
		return apperr.BadRequest("%s: %s", what, res.Reason)
	}
	return nil
}
