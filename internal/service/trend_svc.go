package service

import (
	"math"
	"time"
)

// TrendService computes time-decayed popularity scores. It is pure and
// stateless: the same (votes, age) pair always yields the same score, which
// is what lets the tally recompute scores inside its critical sections and
// the decay sweep re-derive them from age alone.
type TrendService struct {
	decayWindow time.Duration
	gravity     float64
}

func NewTrendService(decayWindow time.Duration, gravity float64) *TrendService {
	if decayWindow <= 0 {
		decayWindow = time.Hour
	}
	if gravity <= 0 {
		gravity = 1.8
	}
	return &TrendService{decayWindow: decayWindow, gravity: gravity}
}

// Score ranks an idea by vote count suppressed by age:
//
//	score = votes / (age/decayWindow + 2)^gravity
//
// The +2 offset keeps brand-new ideas from dividing by near zero and gives a
// one-vote idea a finite, comparable score. Negative vote counts produce
// negative scores, so downvoted ideas sink below fresh zero-vote ones.
func (s *TrendService) Score(voteCount int64, age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	ageRatio := float64(age) / float64(s.decayWindow)
	return float64(voteCount) / math.Pow(ageRatio+2, s.gravity)
}
