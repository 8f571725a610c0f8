package domain

import "math"

// CommuteBucketWeights weight each commute-time band, shortest band first.
var CommuteBucketWeights = [6]float64{0.8, 1.0, 1.2, 1.4, 1.6, 1.8}

const (
	commuteRawMin = 0.0
	commuteRawMax = 10.0
)

// CommuteCounts holds commuter counts per travel-time band for one ZIP.
type CommuteCounts struct {
	TotalCommuters float64
	Buckets        [6]float64
}

// BurdenIndex is the weighted commute severity per commuter.
func (c CommuteCounts) BurdenIndex() float64 {
	var weighted float64
	for i, n := range c.Buckets {
		weighted += n * CommuteBucketWeights[i]
	}
	return weighted / math.Max(c.TotalCommuters, 1)
}

// CommuteRawScore maps a burden index onto the raw score scale.
func CommuteRawScore(burden float64) float64 {
	return (2.5 - burden) * 4.0
}

// NormalizeCommuteScore rescales a raw score to 0..100 with one decimal.
func NormalizeCommuteScore(raw float64) float64 {
	n := (raw - commuteRawMin) / (commuteRawMax - commuteRawMin) * 100
	n = math.Max(0, math.Min(100, n))
	return math.Round(n*10) / 10
}

// DeriveCommuteGrade runs the full commute derivation for one ZIP.
func DeriveCommuteGrade(c CommuteCounts) (Grade, float64) {
	score := NormalizeCommuteScore(CommuteRawScore(c.BurdenIndex()))
	return CommuteGrade(score), score
}
