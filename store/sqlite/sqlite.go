/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements parameter.Store, expurgo.Store, the reference-data providers
  (criteria, sectors, periods), the measurement read path, and the audit
  sink over one SQLite database. In production the same patterns apply to
  PostgreSQL; only minor SQL dialect differences.

KEY TABLES:
  parameter_versions   Effective-dated target versions (soft-delete only)
  expurgos             Exclusion requests and their decisions
  criteria/sectors/periods  Reference data
  measurements         Realized values as written by the ETL
  audit_log            Append-only audit trail

INVARIANT ENFORCEMENT AT THE SCHEMA LEVEL:
  idx_unique_pending_expurgo  one PENDENTE request per
                              (period, sector, criterion, event date)

CONCURRENCY:
  Opened in WAL mode. The supersession and decision sequences run inside
  transactions via WithTx so a losing concurrent writer fails instead of
  silently overwriting.

USAGE:
  store, err := sqlite.New("./data/premiacao.db")  // ":memory:" for tests
  params := store.Parameters()
  expurgos := store.Expurgos()

SEE ALSO:
  - parameter/store.go, expurgo/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/expurgo"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
)

const timeLayout = time.RFC3339Nano

// Store owns the database handle. Per-subsystem views are obtained via
// Parameters(), Expurgos(), and the provider methods implemented directly
// on Store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parameter_versions (
		id TEXT PRIMARY KEY,
		criterion_id INTEGER NOT NULL,
		sector_id INTEGER,
		period_id INTEGER NOT NULL,
		valor TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		justification TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		source TEXT NOT NULL,
		calc_method TEXT,
		adjustment_percent TEXT,
		base_value TEXT,
		rounding_method TEXT,
		decimal_places INTEGER,
		deleted_at TEXT,
		deleted_by TEXT,
		delete_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_versions_tuple
		ON parameter_versions(criterion_id, sector_id, period_id);
	CREATE INDEX IF NOT EXISTS idx_versions_pair
		ON parameter_versions(criterion_id, sector_id, effective_from DESC);
	CREATE INDEX IF NOT EXISTS idx_versions_period
		ON parameter_versions(period_id);

	CREATE TABLE IF NOT EXISTS expurgos (
		id TEXT PRIMARY KEY,
		period_id INTEGER NOT NULL,
		sector_id INTEGER NOT NULL,
		criterion_id INTEGER NOT NULL,
		data_evento TEXT NOT NULL,
		descricao_evento TEXT NOT NULL,
		justificativa_solicitacao TEXT NOT NULL,
		valor_solicitado TEXT NOT NULL,
		valor_aprovado TEXT,
		status TEXT NOT NULL,
		registrado_por TEXT NOT NULL,
		registrado_em TEXT NOT NULL,
		aprovado_por TEXT,
		decidido_em TEXT,
		justificativa_aprovacao TEXT,
		justificativa_rejeicao TEXT,
		observacoes TEXT,
		anexos_json TEXT
	);

	-- One pending request per (period, sector, criterion, event date).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_pending_expurgo
		ON expurgos(period_id, sector_id, criterion_id, data_evento)
		WHERE status = 'PENDENTE';

	CREATE INDEX IF NOT EXISTS idx_expurgos_period
		ON expurgos(period_id, sector_id, criterion_id);
	CREATE INDEX IF NOT EXISTS idx_expurgos_status
		ON expurgos(status);

	CREATE TABLE IF NOT EXISTS criteria (
		id INTEGER PRIMARY KEY,
		nome TEXT NOT NULL,
		unidade_medida TEXT NOT NULL,
		sentido_melhor TEXT NOT NULL,
		ativo INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS sectors (
		id INTEGER PRIMARY KEY,
		nome TEXT NOT NULL,
		ativo INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS periods (
		id INTEGER PRIMARY KEY,
		mes TEXT NOT NULL,
		status TEXT NOT NULL,
		inicio TEXT NOT NULL,
		fim TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_id INTEGER NOT NULL,
		criterion_id INTEGER NOT NULL,
		sector_id INTEGER NOT NULL,
		valor TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_measurements_pair
		ON measurements(criterion_id, sector_id, period_id DESC);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		payload_json TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx so store methods run
// identically inside and outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PARAMETER STORE
// =============================================================================

type ParameterStore struct {
	q  queryer
	db *sql.DB // nil when q is already a transaction
}

func (s *Store) Parameters() *ParameterStore {
	return &ParameterStore{q: s.db, db: s.db}
}

var _ parameter.Store = (*ParameterStore)(nil)

const versionColumns = `id, criterion_id, sector_id, period_id, valor,
	effective_from, effective_to, justification, created_by, created_at,
	source, calc_method, adjustment_percent, base_value, rounding_method,
	decimal_places, deleted_at, deleted_by, delete_reason`

func (p *ParameterStore) Insert(ctx context.Context, v *parameter.Version) error {
	var sectorID any
	if v.Tuple.SectorID != nil {
		sectorID = int64(*v.Tuple.SectorID)
	}
	var effectiveTo any
	if v.EffectiveTo != nil {
		effectiveTo = v.EffectiveTo.String()
	}
	var calcMethod, adjustment, baseValue, rounding, places any
	if v.Metadata.Source == parameter.SourceAuto {
		calcMethod = string(v.Metadata.Method)
		adjustment = v.Metadata.AdjustmentPercent.String()
		baseValue = v.Metadata.BaseValue.String()
		rounding = string(v.Metadata.RoundingMethod)
		places = v.Metadata.DecimalPlaces
	}

	_, err := p.q.ExecContext(ctx, `
		INSERT INTO parameter_versions (`+versionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL)`,
		string(v.ID), int64(v.Tuple.CriterionID), sectorID, int64(v.Tuple.PeriodID),
		v.Valor.String(), v.EffectiveFrom.String(), effectiveTo,
		v.Justification, v.CreatedBy, v.CreatedAt.UTC().Format(timeLayout),
		string(v.Metadata.Source), calcMethod, adjustment, baseValue, rounding, places,
	)
	return err
}

func (p *ParameterStore) GetByID(ctx context.Context, id parameter.VersionID) (*parameter.Version, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM parameter_versions WHERE id = ?`, string(id))
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (p *ParameterStore) FindOpen(ctx context.Context, tuple parameter.Tuple, asOf competition.Date) (*parameter.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM parameter_versions
		WHERE criterion_id = ? AND period_id = ? AND deleted_at IS NULL
		AND (effective_to IS NULL OR effective_to >= ?)`
	args := []any{int64(tuple.CriterionID), int64(tuple.PeriodID), asOf.String()}
	if tuple.SectorID != nil {
		query += ` AND sector_id = ?`
		args = append(args, int64(*tuple.SectorID))
	} else {
		query += ` AND sector_id IS NULL`
	}
	query += ` LIMIT 1`

	row := p.q.QueryRowContext(ctx, query, args...)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (p *ParameterStore) CloseWindow(ctx context.Context, id parameter.VersionID, effectiveTo competition.Date) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE parameter_versions SET effective_to = ? WHERE id = ?`,
		effectiveTo.String(), string(id))
	if err != nil {
		return err
	}
	return requireRow(res, "meta %s não encontrada", id)
}

func (p *ParameterStore) SoftDelete(ctx context.Context, id parameter.VersionID, actor, justification string, at time.Time) error {
	res, err := p.q.ExecContext(ctx, `
		UPDATE parameter_versions
		SET deleted_at = ?, deleted_by = ?, delete_reason = ?
		WHERE id = ? AND deleted_at IS NULL`,
		at.UTC().Format(timeLayout), actor, justification, string(id))
	if err != nil {
		return err
	}
	return requireRow(res, "meta %s não encontrada", id)
}

func (p *ParameterStore) ListByPeriod(ctx context.Context, periodID competition.PeriodID, filter parameter.ListFilter) ([]*parameter.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM parameter_versions
		WHERE period_id = ? AND deleted_at IS NULL`
	args := []any{int64(periodID)}
	if filter.CriterionID != nil {
		query += ` AND criterion_id = ?`
		args = append(args, int64(*filter.CriterionID))
	}
	if filter.SectorID != nil {
		query += ` AND sector_id = ?`
		args = append(args, int64(*filter.SectorID))
	}
	if filter.OnlyActive {
		query += ` AND (effective_to IS NULL OR effective_to >= ?)`
		args = append(args, competition.Today().String())
	}
	query += ` ORDER BY effective_from DESC, created_at DESC`

	return p.queryVersions(ctx, query, args...)
}

func (p *ParameterStore) ListTimeline(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, limit int) ([]*parameter.Version, error) {
	return p.queryVersions(ctx, `
		SELECT `+versionColumns+` FROM parameter_versions
		WHERE criterion_id = ? AND sector_id = ? AND deleted_at IS NULL
		ORDER BY effective_from DESC, created_at DESC
		LIMIT ?`,
		int64(criterionID), int64(sectorID), limit)
}

func (p *ParameterStore) WithTx(ctx context.Context, fn func(parameter.Store) error) error {
	if p.db == nil {
		return fn(p) // already inside a transaction
	}
	return withTx(ctx, p.db, func(tx *sql.Tx) error {
		return fn(&ParameterStore{q: tx})
	})
}

func (p *ParameterStore) queryVersions(ctx context.Context, query string, args ...any) ([]*parameter.Version, error) {
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*parameter.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*parameter.Version, error) {
	var (
		id, valor, effectiveFrom, justification, createdBy, createdAt, source string
		criterionID, periodID                                                 int64
		sectorID                                                              sql.NullInt64
		effectiveTo, calcMethod, adjustment, baseValue, rounding              sql.NullString
		places                                                                sql.NullInt64
		deletedAt, deletedBy, deleteReason                                    sql.NullString
	)
	err := row.Scan(&id, &criterionID, &sectorID, &periodID, &valor,
		&effectiveFrom, &effectiveTo, &justification, &createdBy, &createdAt,
		&source, &calcMethod, &adjustment, &baseValue, &rounding,
		&places, &deletedAt, &deletedBy, &deleteReason)
	if err != nil {
		return nil, err
	}

	v := &parameter.Version{
		ID:            parameter.VersionID(id),
		Justification: justification,
		CreatedBy:     createdBy,
		DeletedBy:     deletedBy.String,
		DeleteReason:  deleteReason.String,
	}
	v.Tuple.CriterionID = competition.CriterionID(criterionID)
	v.Tuple.PeriodID = competition.PeriodID(periodID)
	if sectorID.Valid {
		sid := competition.SectorID(sectorID.Int64)
		v.Tuple.SectorID = &sid
	}
	if v.Valor, err = decimal.NewFromString(valor); err != nil {
		return nil, fmt.Errorf("corrupt valor for version %s: %w", id, err)
	}
	if v.EffectiveFrom, err = competition.ParseDate(effectiveFrom); err != nil {
		return nil, err
	}
	if effectiveTo.Valid {
		to, err := competition.ParseDate(effectiveTo.String)
		if err != nil {
			return nil, err
		}
		v.EffectiveTo = &to
	}
	if v.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		at, err := time.Parse(timeLayout, deletedAt.String)
		if err != nil {
			return nil, err
		}
		v.DeletedAt = &at
	}

	v.Metadata = parameter.ManualMetadata()
	if parameter.Source(source) == parameter.SourceAuto {
		adj, _ := decimal.NewFromString(adjustment.String)
		base, _ := decimal.NewFromString(baseValue.String)
		v.Metadata = parameter.AutoMetadata(
			competition.CalcMethod(calcMethod.String), adj, base,
			competition.RoundingMethod(rounding.String), int32(places.Int64))
	}
	return v, nil
}

// =============================================================================
// EXPURGO STORE
// =============================================================================

type ExpurgoStore struct {
	q  queryer
	db *sql.DB
}

func (s *Store) Expurgos() *ExpurgoStore {
	return &ExpurgoStore{q: s.db, db: s.db}
}

var _ expurgo.Store = (*ExpurgoStore)(nil)

const expurgoColumns = `id, period_id, sector_id, criterion_id, data_evento,
	descricao_evento, justificativa_solicitacao, valor_solicitado,
	valor_aprovado, status, registrado_por, registrado_em, aprovado_por,
	decidido_em, justificativa_aprovacao, justificativa_rejeicao,
	observacoes, anexos_json`

func (x *ExpurgoStore) Insert(ctx context.Context, e *expurgo.Expurgo) error {
	anexos, err := json.Marshal(e.Anexos)
	if err != nil {
		return err
	}
	_, err = x.q.ExecContext(ctx, `
		INSERT INTO expurgos (`+expurgoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, NULL, NULL, NULL, NULL, NULL, ?)`,
		string(e.ID), int64(e.PeriodID), int64(e.SectorID), int64(e.CriterionID),
		e.DataEvento.String(), e.DescricaoEvento, e.JustificativaSolicitacao,
		e.ValorSolicitado.String(), string(e.Status),
		e.RegistradoPor, e.RegistradoEm.UTC().Format(timeLayout), string(anexos),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		// The partial unique index backs the duplicate-pending invariant
		// against writers that bypass the service-level check.
		return competition.NewConflict("já existe um expurgo pendente para este critério/setor nesta data")
	}
	return err
}

func (x *ExpurgoStore) GetByID(ctx context.Context, id expurgo.ExpurgoID) (*expurgo.Expurgo, error) {
	row := x.q.QueryRowContext(ctx,
		`SELECT `+expurgoColumns+` FROM expurgos WHERE id = ?`, string(id))
	e, err := scanExpurgo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (x *ExpurgoStore) FindPending(ctx context.Context, periodID competition.PeriodID, sectorID competition.SectorID, criterionID competition.CriterionID, dataEvento competition.Date) (*expurgo.Expurgo, error) {
	row := x.q.QueryRowContext(ctx, `
		SELECT `+expurgoColumns+` FROM expurgos
		WHERE period_id = ? AND sector_id = ? AND criterion_id = ?
		AND data_evento = ? AND status = 'PENDENTE' LIMIT 1`,
		int64(periodID), int64(sectorID), int64(criterionID), dataEvento.String())
	e, err := scanExpurgo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (x *ExpurgoStore) Update(ctx context.Context, e *expurgo.Expurgo) error {
	var valorAprovado, decididoEm any
	if e.ValorAprovado != nil {
		valorAprovado = e.ValorAprovado.String()
	}
	if e.DecididoEm != nil {
		decididoEm = e.DecididoEm.UTC().Format(timeLayout)
	}
	res, err := x.q.ExecContext(ctx, `
		UPDATE expurgos
		SET status = ?, valor_aprovado = ?, aprovado_por = ?, decidido_em = ?,
		    justificativa_aprovacao = ?, justificativa_rejeicao = ?, observacoes = ?
		WHERE id = ?`,
		string(e.Status), valorAprovado, e.AprovadoPor, decididoEm,
		e.JustificativaAprovacao, e.JustificativaRejeicao, e.Observacoes,
		string(e.ID))
	if err != nil {
		return err
	}
	return requireRow(res, "expurgo %s não encontrado", e.ID)
}

func (x *ExpurgoStore) List(ctx context.Context, filter expurgo.ListFilter) ([]*expurgo.Expurgo, error) {
	query := `SELECT ` + expurgoColumns + ` FROM expurgos WHERE 1=1`
	var args []any
	if filter.PeriodID != nil {
		query += ` AND period_id = ?`
		args = append(args, int64(*filter.PeriodID))
	}
	if filter.SectorID != nil {
		query += ` AND sector_id = ?`
		args = append(args, int64(*filter.SectorID))
	}
	if filter.CriterionID != nil {
		query += ` AND criterion_id = ?`
		args = append(args, int64(*filter.CriterionID))
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.DataInicio != nil {
		query += ` AND data_evento >= ?`
		args = append(args, filter.DataInicio.String())
	}
	if filter.DataFim != nil {
		query += ` AND data_evento <= ?`
		args = append(args, filter.DataFim.String())
	}
	if filter.RegistradoPor != nil {
		query += ` AND registrado_por = ?`
		args = append(args, *filter.RegistradoPor)
	}
	if filter.AprovadoPor != nil {
		query += ` AND aprovado_por = ?`
		args = append(args, *filter.AprovadoPor)
	}
	if filter.HasAttachments != nil {
		if *filter.HasAttachments {
			query += ` AND anexos_json IS NOT NULL AND anexos_json NOT IN ('[]', 'null')`
		} else {
			query += ` AND (anexos_json IS NULL OR anexos_json IN ('[]', 'null'))`
		}
	}
	query += ` ORDER BY registrado_em DESC`

	rows, err := x.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*expurgo.Expurgo
	for rows.Next() {
		e, err := scanExpurgo(rows)
		if err != nil {
			return nil, err
		}
		// Magnitude bounds are easier in decimal space than SQL text.
		if filter.ValorMin != nil && e.ValorSolicitado.Abs().LessThan(filter.ValorMin.Abs()) {
			continue
		}
		if filter.ValorMax != nil && e.ValorSolicitado.Abs().GreaterThan(filter.ValorMax.Abs()) {
			continue
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (x *ExpurgoStore) WithTx(ctx context.Context, fn func(expurgo.Store) error) error {
	if x.db == nil {
		return fn(x)
	}
	return withTx(ctx, x.db, func(tx *sql.Tx) error {
		return fn(&ExpurgoStore{q: tx})
	})
}

func scanExpurgo(row rowScanner) (*expurgo.Expurgo, error) {
	var (
		id, dataEvento, descricao, justSolicitacao, valorSolicitado, status string
		periodID, sectorID, criterionID                                     int64
		registradoPor, registradoEm                                         string
		valorAprovado, aprovadoPor, decididoEm                              sql.NullString
		justAprovacao, justRejeicao, observacoes, anexosJSON                sql.NullString
	)
	err := row.Scan(&id, &periodID, &sectorID, &criterionID, &dataEvento,
		&descricao, &justSolicitacao, &valorSolicitado, &valorAprovado,
		&status, &registradoPor, &registradoEm, &aprovadoPor, &decididoEm,
		&justAprovacao, &justRejeicao, &observacoes, &anexosJSON)
	if err != nil {
		return nil, err
	}

	e := &expurgo.Expurgo{
		ID:                       expurgo.ExpurgoID(id),
		PeriodID:                 competition.PeriodID(periodID),
		SectorID:                 competition.SectorID(sectorID),
		CriterionID:              competition.CriterionID(criterionID),
		DescricaoEvento:          descricao,
		JustificativaSolicitacao: justSolicitacao,
		Status:                   expurgo.Status(status),
		RegistradoPor:            registradoPor,
		AprovadoPor:              aprovadoPor.String,
		JustificativaAprovacao:   justAprovacao.String,
		JustificativaRejeicao:    justRejeicao.String,
		Observacoes:              observacoes.String,
	}
	if e.DataEvento, err = competition.ParseDate(dataEvento); err != nil {
		return nil, err
	}
	if e.ValorSolicitado, err = decimal.NewFromString(valorSolicitado); err != nil {
		return nil, fmt.Errorf("corrupt valor_solicitado for expurgo %s: %w", id, err)
	}
	if valorAprovado.Valid {
		va, err := decimal.NewFromString(valorAprovado.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt valor_aprovado for expurgo %s: %w", id, err)
		}
		e.ValorAprovado = &va
	}
	if e.RegistradoEm, err = time.Parse(timeLayout, registradoEm); err != nil {
		return nil, err
	}
	if decididoEm.Valid {
		at, err := time.Parse(timeLayout, decididoEm.String)
		if err != nil {
			return nil, err
		}
		e.DecididoEm = &at
	}
	if anexosJSON.Valid && anexosJSON.String != "" {
		if err := json.Unmarshal([]byte(anexosJSON.String), &e.Anexos); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// =============================================================================
// REFERENCE DATA + MEASUREMENTS
// =============================================================================

var _ competition.RefData = (*Store)(nil)
var _ competition.MeasurementProvider = (*Store)(nil)

func (s *Store) GetCriterion(ctx context.Context, id competition.CriterionID) (*competition.Criterion, error) {
	var c competition.Criterion
	var cid int64
	var sentido string
	var ativo int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nome, unidade_medida, sentido_melhor, ativo FROM criteria WHERE id = ?`,
		int64(id)).Scan(&cid, &c.Nome, &c.UnidadeMedida, &sentido, &ativo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.ID = competition.CriterionID(cid)
	c.SentidoMelhor = competition.Direction(sentido)
	c.Ativo = ativo != 0
	return &c, nil
}

func (s *Store) GetSector(ctx context.Context, id competition.SectorID) (*competition.Sector, error) {
	var sec competition.Sector
	var sid int64
	var ativo int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nome, ativo FROM sectors WHERE id = ?`, int64(id)).
		Scan(&sid, &sec.Nome, &ativo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sec.ID = competition.SectorID(sid)
	sec.Ativo = ativo != 0
	return &sec, nil
}

func (s *Store) ListCriteria(ctx context.Context) ([]competition.Criterion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nome, unidade_medida, sentido_melhor, ativo FROM criteria ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []competition.Criterion
	for rows.Next() {
		var c competition.Criterion
		var id int64
		var sentido string
		var ativo int
		if err := rows.Scan(&id, &c.Nome, &c.UnidadeMedida, &sentido, &ativo); err != nil {
			return nil, err
		}
		c.ID = competition.CriterionID(id)
		c.SentidoMelhor = competition.Direction(sentido)
		c.Ativo = ativo != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListSectors(ctx context.Context) ([]competition.Sector, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nome, ativo FROM sectors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []competition.Sector
	for rows.Next() {
		var sec competition.Sector
		var id int64
		var ativo int
		if err := rows.Scan(&id, &sec.Nome, &ativo); err != nil {
			return nil, err
		}
		sec.ID = competition.SectorID(id)
		sec.Ativo = ativo != 0
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *Store) GetPeriod(ctx context.Context, id competition.PeriodID) (*competition.Period, error) {
	var p competition.Period
	var pid int64
	var status, inicio, fim string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mes, status, inicio, fim FROM periods WHERE id = ?`, int64(id)).
		Scan(&pid, &p.Mes, &status, &inicio, &fim)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ID = competition.PeriodID(pid)
	p.Status = competition.PeriodStatus(status)
	if p.Inicio, err = competition.ParseDate(inicio); err != nil {
		return nil, err
	}
	if p.Fim, err = competition.ParseDate(fim); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListClosedMeasurements(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, limit int) ([]competition.MeasurementRecord, error) {
	return s.queryMeasurements(ctx, `
		SELECT period_id, criterion_id, sector_id, valor, status FROM measurements
		WHERE criterion_id = ? AND sector_id = ? AND status = 'FECHADA'
		ORDER BY period_id DESC LIMIT ?`,
		int64(criterionID), int64(sectorID), limit)
}

func (s *Store) ListMeasurements(ctx context.Context, criterionID competition.CriterionID, sectorID competition.SectorID, periodIDs []competition.PeriodID) ([]competition.MeasurementRecord, error) {
	if len(periodIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(periodIDs)), ",")
	args := []any{int64(criterionID), int64(sectorID)}
	for _, id := range periodIDs {
		args = append(args, int64(id))
	}
	return s.queryMeasurements(ctx, `
		SELECT period_id, criterion_id, sector_id, valor, status FROM measurements
		WHERE criterion_id = ? AND sector_id = ? AND period_id IN (`+placeholders+`)`,
		args...)
}

func (s *Store) queryMeasurements(ctx context.Context, query string, args ...any) ([]competition.MeasurementRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []competition.MeasurementRecord
	for rows.Next() {
		var m competition.MeasurementRecord
		var periodID, criterionID, sectorID int64
		var valor, status string
		if err := rows.Scan(&periodID, &criterionID, &sectorID, &valor, &status); err != nil {
			return nil, err
		}
		m.PeriodID = competition.PeriodID(periodID)
		m.CriterionID = competition.CriterionID(criterionID)
		m.SectorID = competition.SectorID(sectorID)
		m.Status = competition.MeasurementStatus(status)
		// Non-numeric values from the ETL count as zero, not as failures.
		if m.Valor, err = decimal.NewFromString(valor); err != nil {
			m.Valor = decimal.Zero
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// =============================================================================
// REFERENCE DATA WRITES - Used by seeding and the ETL boundary
// =============================================================================

func (s *Store) UpsertCriterion(ctx context.Context, c competition.Criterion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO criteria (id, nome, unidade_medida, sentido_melhor, ativo)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET nome = excluded.nome,
			unidade_medida = excluded.unidade_medida,
			sentido_melhor = excluded.sentido_melhor, ativo = excluded.ativo`,
		int64(c.ID), c.Nome, c.UnidadeMedida, string(c.SentidoMelhor), boolToInt(c.Ativo))
	return err
}

func (s *Store) UpsertSector(ctx context.Context, sec competition.Sector) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sectors (id, nome, ativo) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET nome = excluded.nome, ativo = excluded.ativo`,
		int64(sec.ID), sec.Nome, boolToInt(sec.Ativo))
	return err
}

func (s *Store) UpsertPeriod(ctx context.Context, p competition.Period) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO periods (id, mes, status, inicio, fim) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET mes = excluded.mes, status = excluded.status,
			inicio = excluded.inicio, fim = excluded.fim`,
		int64(p.ID), p.Mes, string(p.Status), p.Inicio.String(), p.Fim.String())
	return err
}

func (s *Store) InsertMeasurement(ctx context.Context, m competition.MeasurementRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO measurements (period_id, criterion_id, sector_id, valor, status)
		VALUES (?, ?, ?, ?, ?)`,
		int64(m.PeriodID), int64(m.CriterionID), int64(m.SectorID),
		m.Valor.String(), string(m.Status))
	return err
}

// =============================================================================
// AUDIT SINK
// =============================================================================

// AuditSink writes audit events to the append-only audit_log table.
// Failures are logged and swallowed: audit is fire-and-forget.
type AuditSink struct {
	db *sql.DB
}

func (s *Store) Audit() *AuditSink { return &AuditSink{db: s.db} }

var _ competition.AuditSink = (*AuditSink)(nil)

func (a *AuditSink) Record(ctx context.Context, event competition.AuditEvent) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		log.Printf("audit: marshal failed: %v", err)
		return
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO audit_log (timestamp, actor_id, action, payload_json)
		VALUES (?, ?, ?, ?)`,
		event.Timestamp.UTC().Format(timeLayout), event.ActorID,
		string(event.Action), string(payload))
	if err != nil {
		log.Printf("audit: insert failed: %v", err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return competition.NewNotFoundf(format, args...)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
