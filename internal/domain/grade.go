package domain

import (
	"math"
	"strconv"
	"strings"
)

// Grade is a letter grade. See the package doc for the two vocabularies.
type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeD      Grade = "D"
	GradeF      Grade = "F"
)

var rankValues = map[Grade]int{
	GradeAPlus:  8,
	GradeA:      7,
	GradeAMinus: 6,
	GradeBPlus:  5,
	GradeB:      5,
	GradeBMinus: 4,
	GradeCPlus:  3,
	GradeC:      3,
	GradeCMinus: 2,
	GradeD:      1,
	GradeF:      0,
}

// ParseGrade normalizes a grade string, accepting the Unicode minus sign.
func ParseGrade(s string) (Grade, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "−", "-"))
	g := Grade(strings.ToUpper(s))
	if _, ok := rankValues[g]; !ok {
		return "", false
	}
	return g, true
}

// RankValue converts a grade to its ranking integer. Missing grades rank -1.
func RankValue(g *Grade) int {
	if g == nil {
		return -1
	}
	v, ok := rankValues[*g]
	if !ok {
		return -1
	}
	return v
}

// LivabilityGrade maps a 0–100 livability index onto the 8-tier ladder.
// The score is truncated to an integer before comparison.
func LivabilityGrade(score float64) Grade {
	s := math.Trunc(score)
	switch {
	case s >= 75:
		return GradeAPlus
	case s >= 65:
		return GradeA
	case s >= 57:
		return GradeBMinus
	case s >= 47:
		return GradeCPlus
	case s >= 40:
		return GradeC
	case s >= 35:
		return GradeCMinus
	case s >= 25:
		return GradeD
	default:
		return GradeF
	}
}

// LivabilityGradeFromText grades a scraped score such as "72" or "72.0".
// Non-numeric input yields ok=false.
func LivabilityGradeFromText(s string) (Grade, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", false
	}
	return LivabilityGrade(v), true
}

// CommuteGrade maps a normalized 0–100 commute score onto the 11-tier ladder.
// Thresholds are inclusive: exactly 90 is A+.
func CommuteGrade(score float64) Grade {
	switch {
	case score >= 90:
		return GradeAPlus
	case score >= 85:
		return GradeA
	case score >= 80:
		return GradeAMinus
	case score >= 75:
		return GradeBPlus
	case score >= 70:
		return GradeB
	case score >= 65:
		return GradeBMinus
	case score >= 60:
		return GradeCPlus
	case score >= 55:
		return GradeC
	case score >= 50:
		return GradeCMinus
	case score >= 40:
		return GradeD
	default:
		return GradeF
	}
}
