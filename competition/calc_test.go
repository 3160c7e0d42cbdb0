package competition_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// stubMeasurements serves a fixed newest-first history.
type stubMeasurements struct {
	records []competition.MeasurementRecord
}

func (s *stubMeasurements) ListClosedMeasurements(_ context.Context, _ competition.CriterionID, _ competition.SectorID, limit int) ([]competition.MeasurementRecord, error) {
	var out []competition.MeasurementRecord
	for _, rec := range s.records {
		if rec.Status != competition.MeasurementClosed {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubMeasurements) ListMeasurements(_ context.Context, _ competition.CriterionID, _ competition.SectorID, _ []competition.PeriodID) ([]competition.MeasurementRecord, error) {
	return s.records, nil
}

func closedHistory(values ...string) *stubMeasurements {
	recs := make([]competition.MeasurementRecord, len(values))
	for i, v := range values {
		recs[i] = competition.MeasurementRecord{
			PeriodID: competition.PeriodID(100 - i),
			Valor:    dec(v),
			Status:   competition.MeasurementClosed,
		}
	}
	return &stubMeasurements{records: recs}
}

func quebra(direction competition.Direction) *competition.Criterion {
	return &competition.Criterion{ID: 1, Nome: "QUEBRA", SentidoMelhor: direction, Ativo: true}
}

// =============================================================================
// METHOD TESTS
// =============================================================================

func TestResolver_Media3(t *testing.T) {
	// GIVEN: history [100, 120, 80] newest first
	// THEN: base value is their mean, 100
	r := competition.NewResolver(closedHistory("100", "120", "80"))

	base, err := r.BaseValue(context.Background(), competition.CalcMedia3, quebra(competition.DirectionMenor), 2)
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.True(t, base.Equal(dec("100")), "got %s", base)
}

func TestResolver_Media3_ShortHistory(t *testing.T) {
	// Fewer than 3 points: mean over what exists.
	r := competition.NewResolver(closedHistory("10", "20"))

	base, err := r.BaseValue(context.Background(), competition.CalcMedia3, quebra(competition.DirectionMenor), 2)
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.True(t, base.Equal(dec("15")))
}

func TestResolver_Media6(t *testing.T) {
	r := competition.NewResolver(closedHistory("10", "20", "30", "40", "50", "60", "999"))

	base, err := r.BaseValue(context.Background(), competition.CalcMedia6, quebra(competition.DirectionMenor), 2)
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.True(t, base.Equal(dec("35")), "seventh point must not participate, got %s", base)
}

func TestResolver_Ultimo(t *testing.T) {
	r := competition.NewResolver(closedHistory("42.5", "120", "80"))

	base, err := r.BaseValue(context.Background(), competition.CalcUltimo, quebra(competition.DirectionMenor), 2)
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.True(t, base.Equal(dec("42.5")))
}

func TestResolver_Melhor3_Direction(t *testing.T) {
	history := closedHistory("100", "120", "80")

	// MAIOR: best is the maximum
	r := competition.NewResolver(history)
	base, err := r.BaseValue(context.Background(), competition.CalcMelhor3, quebra(competition.DirectionMaior), 2)
	require.NoError(t, err)
	assert.True(t, base.Equal(dec("120")))

	// MENOR: best is the minimum
	base, err = r.BaseValue(context.Background(), competition.CalcMelhor3, quebra(competition.DirectionMenor), 2)
	require.NoError(t, err)
	assert.True(t, base.Equal(dec("80")))
}

func TestResolver_EmptyHistory(t *testing.T) {
	r := competition.NewResolver(closedHistory())

	for _, method := range []competition.CalcMethod{
		competition.CalcMedia3, competition.CalcMedia6, competition.CalcUltimo, competition.CalcMelhor3,
	} {
		base, err := r.BaseValue(context.Background(), method, quebra(competition.DirectionMenor), 2)
		require.NoError(t, err)
		assert.Nil(t, base, "method %s must report no base value", method)
	}
}

func TestResolver_SkipsOpenMeasurements(t *testing.T) {
	// Open rows never qualify, regardless of position.
	stub := closedHistory("100", "200")
	stub.records[0].Status = competition.MeasurementOpen

	r := competition.NewResolver(stub)
	base, err := r.BaseValue(context.Background(), competition.CalcUltimo, quebra(competition.DirectionMenor), 2)
	require.NoError(t, err)
	require.NotNil(t, base)
	assert.True(t, base.Equal(dec("200")))
}

func TestParseCalcMethod(t *testing.T) {
	m, err := competition.ParseCalcMethod("media3")
	require.NoError(t, err)
	assert.Equal(t, competition.CalcMedia3, m)

	_, err = competition.ParseCalcMethod("media12")
	require.Error(t, err)
	assert.True(t, competition.IsValidation(err))
}
