package generation

import "github.com/noah-isme/labgen-api/internal/models"

const (
	minDifficulty = 0.0
	maxDifficulty = 10.0
)

// Scorer assigns a difficulty to a generated question.
type Scorer struct {
	rng Random
}

// NewScorer creates a scorer. A nil source falls back to the process-wide generator.
func NewScorer(rng Random) *Scorer {
	if rng == nil {
		rng = globalRandom{}
	}
	return &Scorer{rng: rng}
}

// Score draws a difficulty uniformly from the template range, rounded to one decimal
// and clamped to [0, 10]. The drawn variables do not influence the score yet.
func (s *Scorer) Score(r models.DifficultyRange, _ models.GeneratedVariables) float64 {
	min, max := r.Min, r.Max
	if min > max {
		min, max = max, min
	}
	if min < minDifficulty {
		min = minDifficulty
	}
	if max > maxDifficulty {
		max = maxDifficulty
	}
	if min > max {
		return clampDifficulty(min)
	}
	value, _ := sampleOnGrid(s.rng, min, max, 10)
	return clampDifficulty(value)
}

func clampDifficulty(value float64) float64 {
	if value < minDifficulty {
		return minDifficulty
	}
	if value > maxDifficulty {
		return maxDifficulty
	}
	return value
}
