package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractZIPAndTown(t *testing.T) {
	addr := "123 Main St, Springfield, NY 11021"

	zip, err := ExtractZIP(addr)
	require.NoError(t, err)
	assert.Equal(t, "11021", zip)

	town, err := ExtractTown(addr)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", town)
}

func TestExtractZIP(t *testing.T) {
	t.Run("first five digit token wins", func(t *testing.T) {
		zip, err := ExtractZIP("Suite 120, Great Neck, NY 11021")
		require.NoError(t, err)
		assert.Equal(t, "11021", zip)
	})

	t.Run("zip plus four", func(t *testing.T) {
		zip, err := ExtractZIP("1 Elm St, Roslyn, NY 11576-1234")
		require.NoError(t, err)
		assert.Equal(t, "11576", zip)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ExtractZIP("1 Elm St, Roslyn, NY")
		assert.ErrorIs(t, err, ErrUnresolvedZIP)
	})
}

func TestExtractTown_Unresolved(t *testing.T) {
	_, err := ExtractTown("Roslyn NY")
	assert.ErrorIs(t, err, ErrUnresolvedTown)
}

func TestZIPFromCensusName(t *testing.T) {
	zip, ok := ZIPFromCensusName("ZCTA5 01001")
	assert.True(t, ok)
	assert.Equal(t, "01001", zip)

	_, ok = ZIPFromCensusName("Hampden County")
	assert.False(t, ok)
}

func TestNormalizeZIP(t *testing.T) {
	assert.Equal(t, "01001", NormalizeZIP("1001"))
	assert.Equal(t, "01001", NormalizeZIP("1001.0"))
	assert.Equal(t, "11021", NormalizeZIP(" 11021 "))
	assert.True(t, ValidZIP("01001"))
	assert.False(t, ValidZIP("1001"))
}

func TestParseMetricField(t *testing.T) {
	f, err := ParseMetricField("health_score")
	require.NoError(t, err)
	assert.Equal(t, MetricHealth, f)

	_, err = ParseMetricField("housing_cost")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestLocationRecord_Metric(t *testing.T) {
	var r LocationRecord
	assert.False(t, r.HasMetrics([]MetricField{MetricHealth}))
	for _, f := range LivabilityMetrics {
		r.SetMetric(f, GradeB)
	}
	assert.True(t, r.HasMetrics(LivabilityMetrics))
	assert.Equal(t, GradeB, *r.Metric(MetricOpportunity))
	assert.Nil(t, r.Metric(MetricField("bogus")))
}
