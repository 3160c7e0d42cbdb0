package parameter_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
	"github.com/Felipe2077/premiacaovpio-sub002/store/memory"
)

// =============================================================================
// FIXTURE
// =============================================================================

const (
	critAtraso    = competition.CriterionID(1)
	critIPK       = competition.CriterionID(2)
	sectorGama    = competition.SectorID(10)
	periodPlan    = competition.PeriodID(100)
	periodActive  = competition.PeriodID(101)
	periodClosed  = competition.PeriodID(102)
	periodMissing = competition.PeriodID(999)
)

type fixture struct {
	svc   *parameter.Service
	store *memory.ParameterStore
	ref   *memory.RefData
	audit *memory.AuditRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ref := memory.NewRefData()
	ref.AddCriterion(competition.Criterion{
		ID: critAtraso, Nome: "ATRASO", UnidadeMedida: "ocorrências",
		SentidoMelhor: competition.DirectionMenor, Ativo: true,
	})
	ref.AddCriterion(competition.Criterion{
		ID: critIPK, Nome: "IPK", UnidadeMedida: "pass/km",
		SentidoMelhor: competition.DirectionMaior, Ativo: true,
	})
	ref.AddSector(competition.Sector{ID: sectorGama, Nome: "GAMA", Ativo: true})
	ref.AddPeriod(competition.Period{
		ID: periodPlan, Mes: "2025-02", Status: competition.PeriodPlanejamento,
		Inicio: competition.NewDate(2025, time.February, 1),
		Fim:    competition.NewDate(2025, time.February, 28),
	})
	ref.AddPeriod(competition.Period{
		ID: periodActive, Mes: "2025-01", Status: competition.PeriodAtiva,
		Inicio: competition.NewDate(2025, time.January, 1),
		Fim:    competition.NewDate(2025, time.January, 31),
	})
	ref.AddPeriod(competition.Period{
		ID: periodClosed, Mes: "2024-12", Status: competition.PeriodFechada,
		Inicio: competition.NewDate(2024, time.December, 1),
		Fim:    competition.NewDate(2024, time.December, 31),
	})

	store := memory.NewParameterStore()
	audit := &memory.AuditRecorder{}
	svc := parameter.NewService(store, ref, competition.NewResolver(ref), audit)

	return &fixture{svc: svc, store: store, ref: ref, audit: audit}
}

func (f *fixture) createInput() parameter.CreateInput {
	sid := sectorGama
	return parameter.CreateInput{
		CriterionID:   critAtraso,
		SectorID:      &sid,
		PeriodID:      periodPlan,
		Valor:         "150",
		EffectiveFrom: competition.NewDate(2025, time.January, 15),
		Justification: "Meta inicial definida na reunião de planejamento",
		Actor:         "diretor.silva",
	}
}

// seedHistory records closed measurements for (ATRASO, GAMA), newest first.
func (f *fixture) seedHistory(values ...string) {
	for i, v := range values {
		f.ref.AddMeasurement(competition.MeasurementRecord{
			PeriodID:    competition.PeriodID(100 - i),
			CriterionID: critAtraso,
			SectorID:    sectorGama,
			Valor:       memory.Dec(v),
			Status:      competition.MeasurementClosed,
		})
	}
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_FirstVersion(t *testing.T) {
	// GIVEN a planning period with no target for the tuple
	f := newFixture(t)
	ctx := context.Background()

	// WHEN the first version is created
	v, err := f.svc.Create(ctx, f.createInput())

	// THEN it is stored open-ended with manual provenance
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.NotEmpty(t, v.ID)
	assert.True(t, v.Valor.Equal(memory.Dec("150")))
	assert.Nil(t, v.EffectiveTo)
	assert.Equal(t, parameter.SourceManual, v.Metadata.Source)
	assert.Equal(t, "diretor.silva", v.CreatedBy)

	stored, err := f.svc.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, stored.Valor.Equal(v.Valor))

	assert.Contains(t, f.audit.Actions(), competition.AuditParameterCreated)
}

func TestCreate_PreservesValorPrecision(t *testing.T) {
	f := newFixture(t)
	in := f.createInput()
	in.Valor = "2.125"

	v, err := f.svc.Create(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "2.125", v.Valor.String())
}

func TestCreate_DuplicateOpenVersionConflicts(t *testing.T) {
	// GIVEN an open version for the tuple
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	// WHEN a second create targets the same tuple
	_, err = f.svc.Create(ctx, f.createInput())

	// THEN it fails with a conflict, not a forked timeline
	require.Error(t, err)
	assert.True(t, competition.IsConflict(err))
}

func TestCreate_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*parameter.CreateInput)
	}{
		{"non-numeric valor", func(in *parameter.CreateInput) { in.Valor = "abc" }},
		{"blank justification", func(in *parameter.CreateInput) { in.Justification = "   " }},
		{"unknown criterion", func(in *parameter.CreateInput) { in.CriterionID = 999 }},
		{"unknown sector", func(in *parameter.CreateInput) {
			sid := competition.SectorID(999)
			in.SectorID = &sid
		}},
		{"unknown period", func(in *parameter.CreateInput) { in.PeriodID = periodMissing }},
		{"closed period", func(in *parameter.CreateInput) { in.PeriodID = periodClosed }},
		{"zero effectiveFrom", func(in *parameter.CreateInput) { in.EffectiveFrom = competition.Date{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := f.createInput()
			tc.mutate(&in)
			_, err := f.svc.Create(ctx, in)
			require.Error(t, err)
			assert.True(t, competition.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreate_ActivePeriodRejectsTargetChanges(t *testing.T) {
	// Targets mutate only during planning; an ATIVA period is too late.
	f := newFixture(t)
	in := f.createInput()
	in.PeriodID = periodActive

	_, err := f.svc.Create(context.Background(), in)

	require.Error(t, err)
	assert.True(t, competition.IsValidation(err))
}

func TestCreate_GeneralTargetWithoutSector(t *testing.T) {
	f := newFixture(t)
	in := f.createInput()
	in.SectorID = nil

	v, err := f.svc.Create(context.Background(), in)

	require.NoError(t, err)
	assert.Nil(t, v.Tuple.SectorID)
}

// =============================================================================
// SUPERSESSION
// =============================================================================

func TestCreateNewVersion_ClosesPredecessorOneDayBefore(t *testing.T) {
	// GIVEN an open version effective from 2025-01-15
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	// WHEN it is superseded effective 2025-02-01
	successor, err := f.svc.CreateNewVersion(ctx, parameter.NewVersionInput{
		ParameterID:   first.ID,
		NewValor:      "160",
		Justification: "Revisão após consenso com a diretoria",
		EffectiveFrom: competition.NewDate(2025, time.February, 1),
		Actor:         "diretor.silva",
	})
	require.NoError(t, err)

	// THEN the predecessor closes on 2025-01-31 and the successor opens
	closed, err := f.svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EffectiveTo)
	assert.Equal(t, "2025-01-31", closed.EffectiveTo.String())
	assert.True(t, closed.Valor.Equal(memory.Dec("150")), "predecessor value is immutable")

	assert.True(t, successor.Valor.Equal(memory.Dec("160")))
	assert.Nil(t, successor.EffectiveTo)
	assert.Equal(t, first.Tuple.CriterionID, successor.Tuple.CriterionID)
	assert.Equal(t, first.Tuple.PeriodID, successor.Tuple.PeriodID)

	// Both versions remain in the period listing: history is never erased.
	versions, err := f.svc.ListByPeriod(ctx, periodPlan, parameter.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	assert.Contains(t, f.audit.Actions(), competition.AuditParameterVersioned)
}

func TestCreateNewVersion_ExplicitCloseDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	closeAt := competition.NewDate(2025, time.January, 20)
	_, err = f.svc.CreateNewVersion(ctx, parameter.NewVersionInput{
		ParameterID:           first.ID,
		NewValor:              "160",
		Justification:         "Ajuste antecipado por determinação da diretoria",
		EffectiveFrom:         competition.NewDate(2025, time.February, 1),
		EffectiveToOfPrevious: &closeAt,
		Actor:                 "diretor.silva",
	})
	require.NoError(t, err)

	closed, err := f.svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EffectiveTo)
	assert.Equal(t, "2025-01-20", closed.EffectiveTo.String())
}

func TestCreateNewVersion_CloseDateMustPrecedeNewStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	// Close date equal to the successor start would overlap the windows.
	closeAt := competition.NewDate(2025, time.February, 1)
	_, err = f.svc.CreateNewVersion(ctx, parameter.NewVersionInput{
		ParameterID:           first.ID,
		NewValor:              "160",
		Justification:         "Tentativa de sobreposição de vigências",
		EffectiveFrom:         competition.NewDate(2025, time.February, 1),
		EffectiveToOfPrevious: &closeAt,
		Actor:                 "diretor.silva",
	})

	require.Error(t, err)
	assert.True(t, competition.IsValidation(err))
}

func TestCreateNewVersion_AlreadySupersededConflicts(t *testing.T) {
	// GIVEN a version already closed by a successor
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	_, err = f.svc.CreateNewVersion(ctx, parameter.NewVersionInput{
		ParameterID:   first.ID,
		NewValor:      "160",
		Justification: "Primeira revisão da meta no período",
		EffectiveFrom: competition.NewDate(2025, time.February, 1),
		Actor:         "diretor.silva",
	})
	require.NoError(t, err)

	// WHEN a second supersession targets the same (stale) version
	_, err = f.svc.CreateNewVersion(ctx, parameter.NewVersionInput{
		ParameterID:   first.ID,
		NewValor:      "170",
		Justification: "Revisão concorrente sobre versão desatualizada",
		EffectiveFrom: competition.NewDate(2025, time.February, 2),
		Actor:         "gerente.souza",
	})

	// THEN the stale writer loses with a conflict
	require.Error(t, err)
	assert.True(t, competition.IsConflict(err))
}

func TestCreateNewVersion_UnknownVersionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateNewVersion(context.Background(), parameter.NewVersionInput{
		ParameterID:   "does-not-exist",
		NewValor:      "160",
		Justification: "Qualquer justificativa razoável",
		Actor:         "diretor.silva",
	})

	require.Error(t, err)
	assert.True(t, competition.IsNotFound(err))
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_SoftDeletesAndRemovesFromListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	err = f.svc.Delete(ctx, v.ID, "Meta criada por engano para o setor errado", "diretor.silva")
	require.NoError(t, err)

	versions, err := f.svc.ListByPeriod(ctx, periodPlan, parameter.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, versions)

	// A deleted version no longer blocks a fresh create for the tuple.
	_, err = f.svc.Create(ctx, f.createInput())
	assert.NoError(t, err)

	assert.Contains(t, f.audit.Actions(), competition.AuditParameterDeleted)
}

func TestDelete_RequiresJustification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)

	err = f.svc.Delete(ctx, v.ID, "  ", "diretor.silva")

	require.Error(t, err)
	assert.True(t, competition.IsValidation(err))
}

func TestDelete_TwiceIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, v.ID, "Registro duplicado por engano", "diretor.silva"))

	err = f.svc.Delete(ctx, v.ID, "Tentativa repetida de exclusão", "diretor.silva")

	require.Error(t, err)
	assert.True(t, competition.IsNotFound(err))
}

// =============================================================================
// AUTOMATIC CALCULATION
// =============================================================================

func TestCalculateAutomatic_Media3WithAdjustment(t *testing.T) {
	// GIVEN three closed measurements 100, 110, 120 (newest first)
	f := newFixture(t)
	f.seedHistory("100", "110", "120")
	ctx := context.Background()
	sid := sectorGama

	// WHEN a media3 target with +10% is calculated
	v, err := f.svc.CalculateAutomatic(ctx, parameter.CalculateInput{
		CriterionID:       critAtraso,
		SectorID:          &sid,
		PeriodID:          periodPlan,
		Method:            competition.CalcMedia3,
		AdjustmentPercent: memory.Dec("10"),
		RoundingMethod:    competition.RoundNearest,
		DecimalPlaces:     0,
		EffectiveFrom:     competition.NewDate(2025, time.February, 1),
		Actor:             "diretor.silva",
	})

	// THEN valor = round(mean(100,110,120) * 1.10) = 121
	require.NoError(t, err)
	assert.Equal(t, "121", v.Valor.String())
	assert.Equal(t, parameter.SourceAuto, v.Metadata.Source)
	assert.Equal(t, competition.CalcMedia3, v.Metadata.Method)
	assert.Equal(t, "110", v.Metadata.BaseValue.String())
	assert.Equal(t, "10", v.Metadata.AdjustmentPercent.String())
	assert.NotEmpty(t, v.Justification, "a justification is generated when omitted")

	assert.Contains(t, f.audit.Actions(), competition.AuditParameterCalculated)
}

func TestCalculateAutomatic_RoundingPolicyApplies(t *testing.T) {
	// mean(100,101,102) = 101, +2.5% = 103.525
	f := newFixture(t)
	f.seedHistory("100", "101", "102")
	ctx := context.Background()
	sid := sectorGama

	tests := []struct {
		rounding competition.RoundingMethod
		places   int32
		want     string
	}{
		{competition.RoundNearest, 2, "103.53"},
		{competition.RoundUp, 2, "103.53"},
		{competition.RoundDown, 2, "103.52"},
		{competition.RoundUp, 0, "104"},
		{competition.RoundDown, 0, "103"},
	}
	for _, tc := range tests {
		t.Run(string(tc.rounding), func(t *testing.T) {
			v, err := f.svc.CalculateAutomatic(ctx, parameter.CalculateInput{
				CriterionID:       critAtraso,
				SectorID:          &sid,
				PeriodID:          periodPlan,
				Method:            competition.CalcMedia3,
				AdjustmentPercent: memory.Dec("2.5"),
				RoundingMethod:    tc.rounding,
				DecimalPlaces:     tc.places,
				EffectiveFrom:     competition.NewDate(2025, time.February, 1),
				Actor:             "diretor.silva",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Valor.String())
		})
	}
}

func TestCalculateAutomatic_InsufficientHistory(t *testing.T) {
	// GIVEN no closed measurements at all
	f := newFixture(t)
	sid := sectorGama

	_, err := f.svc.CalculateAutomatic(context.Background(), parameter.CalculateInput{
		CriterionID:       critAtraso,
		SectorID:          &sid,
		PeriodID:          periodPlan,
		Method:            competition.CalcMedia3,
		AdjustmentPercent: decimal.Zero,
		RoundingMethod:    competition.RoundNearest,
		Actor:             "diretor.silva",
	})

	// THEN the calculation is refused, never silently zero
	require.Error(t, err)
	assert.True(t, competition.IsValidation(err))
	assert.Contains(t, err.Error(), "dados históricos insuficientes")
}

func TestCalculateAutomatic_RequiresConcreteSector(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CalculateAutomatic(context.Background(), parameter.CalculateInput{
		CriterionID:    critAtraso,
		SectorID:       nil,
		PeriodID:       periodPlan,
		Method:         competition.CalcMedia3,
		RoundingMethod: competition.RoundNearest,
		Actor:          "diretor.silva",
	})

	require.Error(t, err)
	assert.True(t, competition.IsValidation(err))
}

func TestCalculateAutomatic_SupersedesOpenVersion(t *testing.T) {
	// GIVEN a manually created open version
	f := newFixture(t)
	f.seedHistory("100", "110", "120")
	ctx := context.Background()
	manual, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	sid := sectorGama

	// WHEN an automatic calculation lands on the same tuple
	auto, err := f.svc.CalculateAutomatic(ctx, parameter.CalculateInput{
		CriterionID:       critAtraso,
		SectorID:          &sid,
		PeriodID:          periodPlan,
		Method:            competition.CalcMedia3,
		AdjustmentPercent: decimal.Zero,
		RoundingMethod:    competition.RoundNearest,
		EffectiveFrom:     competition.NewDate(2025, time.February, 1),
		Actor:             "diretor.silva",
	})
	require.NoError(t, err)

	// THEN the manual version is closed and the auto version is open
	closed, err := f.svc.GetByID(ctx, manual.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EffectiveTo)
	assert.Equal(t, "2025-01-31", closed.EffectiveTo.String())
	assert.Nil(t, auto.EffectiveTo)
}

// =============================================================================
// READ PATHS
// =============================================================================

func TestListByPeriod_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sid := sectorGama
	_, err := f.svc.Create(ctx, f.createInput())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, parameter.CreateInput{
		CriterionID:   critIPK,
		SectorID:      &sid,
		PeriodID:      periodPlan,
		Valor:         "2.1",
		EffectiveFrom: competition.NewDate(2025, time.January, 15),
		Justification: "Meta de IPK para o período de planejamento",
		Actor:         "diretor.silva",
	})
	require.NoError(t, err)

	all, err := f.svc.ListByPeriod(ctx, periodPlan, parameter.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cid := critIPK
	filtered, err := f.svc.ListByPeriod(ctx, periodPlan, parameter.ListFilter{CriterionID: &cid})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, critIPK, filtered[0].Tuple.CriterionID)
}

func TestListByPeriod_UnknownPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListByPeriod(context.Background(), periodMissing, parameter.ListFilter{})

	require.Error(t, err)
	assert.True(t, competition.IsNotFound(err))
}

func TestGetByID_UnknownVersion(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, competition.IsNotFound(err))
}
