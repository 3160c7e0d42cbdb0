/*
seed.go - Development and demo data

PURPOSE:
  Populates the database with the reference data the system needs to be
  usable at all (sectors, criteria, competition periods) plus a few months
  of closed measurements so automatic calculation and history queries have
  something to chew on.

NOTE:
  Reference data upserts are idempotent; measurements are only inserted
  when the table is empty. Safe to run on every startup with -seed.
*/
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
)

// Seed loads sectors, criteria, a period run and demo measurements.
func Seed(ctx context.Context, store *Store) error {
	sectors := []competition.Sector{
		{ID: 1, Nome: "GAMA", Ativo: true},
		{ID: 2, Nome: "PARANOÁ", Ativo: true},
		{ID: 3, Nome: "SANTA MARIA", Ativo: true},
		{ID: 4, Nome: "SÃO SEBASTIÃO", Ativo: true},
	}
	for _, s := range sectors {
		if err := store.UpsertSector(ctx, s); err != nil {
			return fmt.Errorf("seed sector %s: %w", s.Nome, err)
		}
	}

	criteria := []competition.Criterion{
		{ID: 1, Nome: "ATRASO", UnidadeMedida: "ocorrências", SentidoMelhor: competition.DirectionMenor, Ativo: true},
		{ID: 2, Nome: "FURO POR VIAGEM", UnidadeMedida: "ocorrências", SentidoMelhor: competition.DirectionMenor, Ativo: true},
		{ID: 3, Nome: "QUEBRA", UnidadeMedida: "ocorrências", SentidoMelhor: competition.DirectionMenor, Ativo: true},
		{ID: 4, Nome: "DEFEITO", UnidadeMedida: "ocorrências", SentidoMelhor: competition.DirectionMenor, Ativo: true},
		{ID: 5, Nome: "FALTA FUNC", UnidadeMedida: "ocorrências", SentidoMelhor: competition.DirectionMenor, Ativo: true},
		{ID: 6, Nome: "IPK", UnidadeMedida: "pass/km", SentidoMelhor: competition.DirectionMaior, Ativo: true},
		{ID: 7, Nome: "KM OCIOSA", UnidadeMedida: "km", SentidoMelhor: competition.DirectionMenor, Ativo: true},
		{ID: 8, Nome: "PEÇAS", UnidadeMedida: "R$", SentidoMelhor: competition.DirectionMenor, Ativo: true},
		{ID: 9, Nome: "PNEUS", UnidadeMedida: "R$", SentidoMelhor: competition.DirectionMenor, Ativo: true},
	}
	for _, c := range criteria {
		if err := store.UpsertCriterion(ctx, c); err != nil {
			return fmt.Errorf("seed criterion %s: %w", c.Nome, err)
		}
	}

	// Six closed months, one active, one in planning.
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		start := base.AddDate(0, i, 0)
		end := start.AddDate(0, 1, -1)
		status := competition.PeriodFechada
		switch i {
		case 6:
			status = competition.PeriodAtiva
		case 7:
			status = competition.PeriodPlanejamento
		}
		period := competition.Period{
			ID:     competition.PeriodID(i + 1),
			Mes:    start.Format("2006-01"),
			Status: status,
			Inicio: competition.DateOf(start),
			Fim:    competition.DateOf(end),
		}
		if err := store.UpsertPeriod(ctx, period); err != nil {
			return fmt.Errorf("seed period %s: %w", period.Mes, err)
		}
	}

	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return seedMeasurements(ctx, store, sectors, criteria)
}

// seedMeasurements writes closed realized values for the six closed months.
// Values drift per sector and month so trends and streaks show up in the
// history views.
func seedMeasurements(ctx context.Context, store *Store, sectors []competition.Sector, criteria []competition.Criterion) error {
	for _, sector := range sectors {
		for _, criterion := range criteria {
			base := seedBase(criterion, sector)
			for month := 0; month < 6; month++ {
				drift := decimal.NewFromInt(int64((int(sector.ID)*7 + month*3 + int(criterion.ID)*5) % 17)).Sub(decimal.NewFromInt(8))
				valor := base.Add(drift)
				if valor.IsNegative() {
					valor = decimal.Zero
				}
				err := store.InsertMeasurement(ctx, competition.MeasurementRecord{
					PeriodID:    competition.PeriodID(month + 1),
					CriterionID: criterion.ID,
					SectorID:    sector.ID,
					Valor:       valor,
					Status:      competition.MeasurementClosed,
				})
				if err != nil {
					return fmt.Errorf("seed measurement %s/%s: %w", criterion.Nome, sector.Nome, err)
				}
			}
		}
	}
	return nil
}

func seedBase(criterion competition.Criterion, sector competition.Sector) decimal.Decimal {
	// IPK lives on a different scale than occurrence counts.
	if criterion.Nome == "IPK" {
		return decimal.NewFromFloat(2.0).Add(decimal.NewFromInt(int64(sector.ID)).Div(decimal.NewFromInt(10)))
	}
	return decimal.NewFromInt(int64(40 + int(criterion.ID)*10 + int(sector.ID)*2))
}
