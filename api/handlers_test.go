/*
handlers_test.go - End-to-end tests for the HTTP API

Runs the full stack against an in-memory SQLite database: router,
handlers, domain services and store. Covers the happy paths and the
error-to-status mapping.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/expurgo"
	"github.com/Felipe2077/premiacaovpio-sub002/history"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
	"github.com/Felipe2077/premiacaovpio-sub002/store/sqlite"
)

// Seeded fixture facts: period 8 is PLANEJAMENTO, period 7 is ATIVA,
// periods 1-6 are closed with measurements. Criterion 1 is ATRASO
// (expurgo-eligible), criterion 6 is IPK (not eligible). Sector 1 is GAMA.
const (
	planningPeriod = 8
	activePeriod   = 7
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, sqlite.Seed(context.Background(), store))

	audit := store.Audit()
	resolver := competition.NewResolver(store)
	params := parameter.NewService(store.Parameters(), store, resolver, audit)
	expurgos := expurgo.NewService(store.Expurgos(), store, audit, nil)
	reconstructor := history.NewReconstructor(store.Parameters(), store, store,
		history.ExpurgoAdjustments{Store: store.Expurgos()})

	srv := httptest.NewServer(NewRouter(NewHandler(params, expurgos, reconstructor, store)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, role string) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-User-ID", "user."+role)
		req.Header.Set("X-User-Name", "Test User")
		req.Header.Set("X-User-Role", role)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), "body: %s", raw)
	return v
}

// =============================================================================
// PARAMETERS
// =============================================================================

func createParameterBody(valor string) map[string]any {
	return map[string]any{
		"criterionId":         1,
		"sectorId":            1,
		"competitionPeriodId": planningPeriod,
		"valor":               valor,
		"dataInicioEfetivo":   "2025-08-01",
		"justificativa":       "Meta definida na reunião de planejamento",
	}
}

func TestAPI_CreateParameter(t *testing.T) {
	srv := newServer(t)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/parameters", createParameterBody("150"), "DIRETOR")

	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)
	dto := decode[ParameterDTO](t, body)
	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, "150", dto.Valor)
	assert.Equal(t, "manual", dto.Source)
	assert.Nil(t, dto.EffectiveTo)
}

func TestAPI_CreateParameterConflictOnDuplicate(t *testing.T) {
	srv := newServer(t)
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/parameters", createParameterBody("150"), "DIRETOR")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/parameters", createParameterBody("160"), "DIRETOR")

	assert.Equal(t, http.StatusConflict, resp.StatusCode, "body: %s", body)
}

func TestAPI_CreateParameterValidation(t *testing.T) {
	srv := newServer(t)
	body := createParameterBody("150")
	body["competitionPeriodId"] = activePeriod // targets are immutable outside planning

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/parameters", body, "DIRETOR")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", raw)
}

func TestAPI_SupersedeParameter(t *testing.T) {
	srv := newServer(t)
	_, raw := doJSON(t, srv, http.MethodPost, "/api/parameters", createParameterBody("150"), "DIRETOR")
	first := decode[ParameterDTO](t, raw)

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/parameters/"+first.ID+"/versions", map[string]any{
		"valor":             "160",
		"justificativa":     "Revisão acordada com a diretoria",
		"dataInicioEfetivo": "2025-08-15",
	}, "DIRETOR")

	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", raw)
	successor := decode[ParameterDTO](t, raw)
	assert.Equal(t, "160", successor.Valor)

	// The predecessor is now closed one day before the successor starts.
	resp, raw = doJSON(t, srv, http.MethodGet, "/api/parameters/"+first.ID, nil, "DIRETOR")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	closed := decode[ParameterDTO](t, raw)
	require.NotNil(t, closed.EffectiveTo)
	assert.Equal(t, "2025-08-14", *closed.EffectiveTo)
}

func TestAPI_CalculateParameter(t *testing.T) {
	srv := newServer(t)

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/parameters/calculate", map[string]any{
		"criterionId":           1,
		"sectorId":              1,
		"competitionPeriodId":   planningPeriod,
		"calculationMethod":     "media3",
		"calculationAdjustment": "10",
		"roundingMethod":        "nearest",
		"decimalPlaces":         0,
		"dataInicioEfetivo":     "2025-08-01",
	}, "DIRETOR")

	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", raw)
	dto := decode[ParameterDTO](t, raw)
	assert.Equal(t, "auto", dto.Source)
	require.NotNil(t, dto.Metadata)
	assert.Equal(t, "media3", dto.Metadata.Method)
	assert.NotEmpty(t, dto.Metadata.BaseValue)
}

func TestAPI_CalculateParameterBadMethod(t *testing.T) {
	srv := newServer(t)

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/parameters/calculate", map[string]any{
		"criterionId":         1,
		"sectorId":            1,
		"competitionPeriodId": planningPeriod,
		"calculationMethod":   "media12",
		"roundingMethod":      "nearest",
	}, "DIRETOR")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", raw)
}

func TestAPI_GetParameterNotFound(t *testing.T) {
	srv := newServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/parameters/nope", nil, "DIRETOR")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ListParametersRequiresPeriod(t *testing.T) {
	srv := newServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/parameters", nil, "DIRETOR")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// EXPURGOS
// =============================================================================

func expurgoBody() map[string]any {
	return map[string]any{
		"competitionPeriodId":      activePeriod,
		"sectorId":                 1,
		"criterionId":              1,
		"dataEvento":               "2025-07-10",
		"descricaoEvento":          "Atraso causado por interdição da via principal",
		"justificativaSolicitacao": "Evento externo fora do controle operacional do setor",
		"valorSolicitado":          "10",
	}
}

func TestAPI_ExpurgoWorkflow(t *testing.T) {
	srv := newServer(t)

	// GERENTE files the request
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/expurgos", expurgoBody(), "GERENTE")
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", raw)
	created := decode[ExpurgoDTO](t, raw)
	assert.Equal(t, "PENDENTE", created.Status)

	// GERENTE cannot decide it
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/expurgos/"+created.ID+"/approve", map[string]any{
		"valorAprovado":          "7",
		"justificativaAprovacao": "Confirmado por laudo",
	}, "GERENTE")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// DIRETOR approves a smaller magnitude: partial approval
	resp, raw = doJSON(t, srv, http.MethodPost, "/api/expurgos/"+created.ID+"/approve", map[string]any{
		"valorAprovado":          "7",
		"justificativaAprovacao": "Confirmado por laudo",
	}, "DIRETOR")
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", raw)
	decided := decode[ExpurgoDTO](t, raw)
	assert.Equal(t, "APROVADO_PARCIAL", decided.Status)
	require.NotNil(t, decided.ValorAprovado)
	assert.Equal(t, "7", *decided.ValorAprovado)

	// A second decision hits the terminal-state guard
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/expurgos/"+created.ID+"/reject", map[string]any{
		"justificativaRejeicao": "Mudança de entendimento",
	}, "DIRETOR")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_ExpurgoDuplicatePending(t *testing.T) {
	srv := newServer(t)
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/expurgos", expurgoBody(), "GERENTE")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/expurgos", expurgoBody(), "GERENTE")

	assert.Equal(t, http.StatusConflict, resp.StatusCode, "body: %s", raw)
}

func TestAPI_ExpurgoIneligibleCriterion(t *testing.T) {
	srv := newServer(t)
	body := expurgoBody()
	body["criterionId"] = 6 // IPK

	resp, raw := doJSON(t, srv, http.MethodPost, "/api/expurgos", body, "GERENTE")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", raw)
}

func TestAPI_ExpurgoUnauthenticated(t *testing.T) {
	srv := newServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/expurgos", expurgoBody(), "")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_ListExpurgosByStatus(t *testing.T) {
	srv := newServer(t)
	_, raw := doJSON(t, srv, http.MethodPost, "/api/expurgos", expurgoBody(), "GERENTE")
	created := decode[ExpurgoDTO](t, raw)

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/expurgos?status=PENDENTE", nil, "GERENTE")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]ExpurgoDTO](t, raw)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

// =============================================================================
// HISTORY AND REFERENCE DATA
// =============================================================================

func TestAPI_History(t *testing.T) {
	srv := newServer(t)
	_, raw := doJSON(t, srv, http.MethodPost, "/api/parameters", createParameterBody("150"), "DIRETOR")
	require.NotEmpty(t, decode[ParameterDTO](t, raw).ID)

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/history?criterionId=1&sectorId=1", nil, "GERENTE")

	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", raw)
	result := decode[map[string]json.RawMessage](t, raw)
	assert.Contains(t, result, "timeline")
	assert.Contains(t, result, "summary")
}

func TestAPI_HistoryUnknownCriterion(t *testing.T) {
	srv := newServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/history?criterionId=999&sectorId=1", nil, "GERENTE")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ReferenceData(t *testing.T) {
	srv := newServer(t)

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/criteria", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	criteria := decode[[]CriterionDTO](t, raw)
	require.NotEmpty(t, criteria)

	eligible := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		eligible[c.Nome] = c.ElegivelExpurgo
	}
	assert.True(t, eligible["QUEBRA"])
	assert.False(t, eligible["IPK"])

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/sectors", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sectors := decode[[]SectorDTO](t, raw)
	assert.Len(t, sectors, 4)
}

func TestAPI_Health(t *testing.T) {
	srv := newServer(t)

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/health", nil, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, raw)["status"])
}
