package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateMonthlyChildcareCost(t *testing.T) {
	assert.Equal(t, 1200.00, EstimateMonthlyChildcareCost(70000))
	assert.Equal(t, 2400.00, EstimateMonthlyChildcareCost(140000))
	assert.Equal(t, 1714.29, EstimateMonthlyChildcareCost(100000))
	assert.Equal(t, BaseChildcareCost, EstimateMonthlyChildcareCost(0))
	assert.Equal(t, BaseChildcareCost, EstimateMonthlyChildcareCost(-5))
}

func TestParseIncome(t *testing.T) {
	v, ok := ParseIncome("$98,123")
	assert.True(t, ok)
	assert.Equal(t, 98123.0, v)

	v, ok = ParseIncome("250,000+")
	assert.True(t, ok)
	assert.Equal(t, 250000.0, v)

	_, ok = ParseIncome("")
	assert.False(t, ok)
	_, ok = ParseIncome("unknown")
	assert.False(t, ok)
}

func TestMonthlyFromWeekly(t *testing.T) {
	assert.Equal(t, 463.0, MonthlyFromWeekly(100))
	assert.Equal(t, 1389.0, MonthlyFromWeekly(300))
}

func TestDeriveTaxRate(t *testing.T) {
	t.Run("weighted brackets", func(t *testing.T) {
		var b TaxBracketCounts
		b.Counts[0] = 10 // midpoint 300
		b.Counts[9] = 10 // midpoint 15000
		rate, err := DeriveTaxRate(b, 500000)
		require.NoError(t, err)
		assert.Equal(t, 1.53, rate)
	})

	t.Run("fallback to assumed average", func(t *testing.T) {
		rate, err := DeriveTaxRate(TaxBracketCounts{TotalHouseholds: 40}, 300000)
		require.NoError(t, err)
		assert.Equal(t, 6.0, rate)
	})

	t.Run("no counts and no total is skipped", func(t *testing.T) {
		_, err := DeriveTaxRate(TaxBracketCounts{}, 300000)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("zero home value", func(t *testing.T) {
		var b TaxBracketCounts
		b.Counts[3] = 1
		_, err := DeriveTaxRate(b, 0)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestDeriveCommuteGrade(t *testing.T) {
	t.Run("all short commutes", func(t *testing.T) {
		c := CommuteCounts{TotalCommuters: 100, Buckets: [6]float64{100}}
		assert.InDelta(t, 0.8, c.BurdenIndex(), 1e-9)
		grade, score := DeriveCommuteGrade(c)
		assert.Equal(t, 68.0, score)
		assert.Equal(t, GradeBMinus, grade)
	})

	t.Run("all long commutes", func(t *testing.T) {
		c := CommuteCounts{TotalCommuters: 50, Buckets: [6]float64{0, 0, 0, 0, 0, 50}}
		grade, score := DeriveCommuteGrade(c)
		assert.Equal(t, 28.0, score)
		assert.Equal(t, GradeF, grade)
	})

	t.Run("zero commuters uses denominator of one", func(t *testing.T) {
		grade, score := DeriveCommuteGrade(CommuteCounts{})
		assert.Equal(t, 100.0, score)
		assert.Equal(t, GradeAPlus, grade)
	})

	t.Run("normalized score is clamped", func(t *testing.T) {
		assert.Equal(t, 0.0, NormalizeCommuteScore(-4))
		assert.Equal(t, 100.0, NormalizeCommuteScore(12))
	})
}

func TestHaversineMiles(t *testing.T) {
	assert.Equal(t, 0.0, HaversineMiles(40.7, -73.9, 40.7, -73.9))

	// Great Neck, NY to Huntington, NY
	d1 := HaversineMiles(40.80, -73.73, 40.87, -73.43)
	d2 := HaversineMiles(40.87, -73.43, 40.80, -73.73)
	assert.InDelta(t, d1, d2, 1e-9)
	assert.InDelta(t, 16.4, d1, 0.5)
}
