/*
handlers.go - HTTP API handlers for the sector competition system

PURPOSE:
  Exposes target versioning, exclusion requests and history reconstruction
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates every rule to the domain services.

ENDPOINTS:
  Parameters (targets):
    GET    /api/parameters                 List versions of a period
    POST   /api/parameters                 Create first version
    GET    /api/parameters/{id}            Get one version
    POST   /api/parameters/{id}/versions   Supersede with a new version
    DELETE /api/parameters/{id}            Soft-delete a version
    POST   /api/parameters/calculate       Automatic calculation

  Expurgos (exclusion requests):
    GET    /api/expurgos                   List with filters
    POST   /api/expurgos                   File a request
    GET    /api/expurgos/{id}              Get one request
    POST   /api/expurgos/{id}/approve      Approve (full or partial)
    POST   /api/expurgos/{id}/reject       Reject

  History:
    GET    /api/history                    Timeline + summary for a pair

  Reference data:
    GET    /api/criteria
    GET    /api/sectors

AUTHENTICATION:
  The acting user arrives in headers set by the gateway:
    X-User-ID, X-User-Name, X-User-Role
  Handlers never decide authority; the services do.

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: validation
  - 401: authorization
  - 404: not found
  - 409: conflict
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/expurgo"
	"github.com/Felipe2077/premiacaovpio-sub002/history"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// RefLister extends the read-side reference data with the listings the API
// exposes for selection lists.
type RefLister interface {
	competition.RefData
	ListCriteria(ctx context.Context) ([]competition.Criterion, error)
	ListSectors(ctx context.Context) ([]competition.Sector, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Parameters *parameter.Service
	Expurgos   *expurgo.Service
	History    *history.Reconstructor
	Ref        RefLister
}

func NewHandler(params *parameter.Service, expurgos *expurgo.Service, hist *history.Reconstructor, ref RefLister) *Handler {
	return &Handler{Parameters: params, Expurgos: expurgos, History: hist, Ref: ref}
}

// =============================================================================
// PARAMETER HANDLERS
// =============================================================================

// ListParameters returns the versions of a period, optionally filtered.
// GET /api/parameters?periodId=&sectorId=&criterionId=&onlyActive=
func (h *Handler) ListParameters(w http.ResponseWriter, r *http.Request) {
	periodID, err := queryInt64(r, "periodId")
	if err != nil || periodID == nil {
		writeError(w, http.StatusBadRequest, "periodId query parameter is required", err)
		return
	}

	var filter parameter.ListFilter
	sectorID, err := queryInt64(r, "sectorId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sectorId", err)
		return
	}
	if sectorID != nil {
		sid := competition.SectorID(*sectorID)
		filter.SectorID = &sid
	}
	criterionID, err := queryInt64(r, "criterionId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid criterionId", err)
		return
	}
	if criterionID != nil {
		cid := competition.CriterionID(*criterionID)
		filter.CriterionID = &cid
	}
	filter.OnlyActive = r.URL.Query().Get("onlyActive") == "true"

	versions, err := h.Parameters.ListByPeriod(r.Context(), competition.PeriodID(*periodID), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParameterDTOs(versions))
}

// GetParameter returns a single target version.
func (h *Handler) GetParameter(w http.ResponseWriter, r *http.Request) {
	id := parameter.VersionID(chi.URLParam(r, "id"))

	version, err := h.Parameters.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParameterDTO(version))
}

// CreateParameter creates the first version of a target.
func (h *Handler) CreateParameter(w http.ResponseWriter, r *http.Request) {
	var req CreateParameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	effectiveFrom, err := parseDateField(req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dataInicioEfetivo (use YYYY-MM-DD)", err)
		return
	}

	in := parameter.CreateInput{
		CriterionID:   competition.CriterionID(req.CriterionID),
		PeriodID:      competition.PeriodID(req.PeriodID),
		Valor:         req.Valor,
		EffectiveFrom: effectiveFrom,
		Justification: req.Justification,
		Actor:         actorFrom(r).ID,
	}
	if req.SectorID != nil {
		sid := competition.SectorID(*req.SectorID)
		in.SectorID = &sid
	}

	version, err := h.Parameters.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParameterDTO(version))
}

// CreateParameterVersion supersedes an existing version.
// POST /api/parameters/{id}/versions
func (h *Handler) CreateParameterVersion(w http.ResponseWriter, r *http.Request) {
	id := parameter.VersionID(chi.URLParam(r, "id"))

	var req NewVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := parameter.NewVersionInput{
		ParameterID:   id,
		NewValor:      req.Valor,
		Justification: req.Justification,
		Actor:         actorFrom(r).ID,
	}
	if req.EffectiveFrom != "" {
		from, err := parseDateField(req.EffectiveFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid dataInicioEfetivo (use YYYY-MM-DD)", err)
			return
		}
		in.EffectiveFrom = from
	}
	if req.EffectiveToOfPrevious != nil {
		to, err := parseDateField(*req.EffectiveToOfPrevious)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid dataFimEfetivoAnterior (use YYYY-MM-DD)", err)
			return
		}
		in.EffectiveToOfPrevious = &to
	}

	version, err := h.Parameters.CreateNewVersion(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParameterDTO(version))
}

// DeleteParameter soft-deletes a version.
func (h *Handler) DeleteParameter(w http.ResponseWriter, r *http.Request) {
	id := parameter.VersionID(chi.URLParam(r, "id"))

	var req DeleteParameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Parameters.Delete(r.Context(), id, req.Justification, actorFrom(r).ID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// CalculateParameter creates a version from closed history.
// POST /api/parameters/calculate
func (h *Handler) CalculateParameter(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	method, err := competition.ParseCalcMethod(req.Method)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rounding, err := competition.ParseRoundingMethod(req.RoundingMethod)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	adjustment := decimal.Zero
	if req.AdjustmentPercent != "" {
		adjustment, err = decimal.NewFromString(req.AdjustmentPercent)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid calculationAdjustment", err)
			return
		}
	}

	in := parameter.CalculateInput{
		CriterionID:       competition.CriterionID(req.CriterionID),
		PeriodID:          competition.PeriodID(req.PeriodID),
		Method:            method,
		AdjustmentPercent: adjustment,
		RoundingMethod:    rounding,
		DecimalPlaces:     req.DecimalPlaces,
		Justification:     req.Justification,
		Actor:             actorFrom(r).ID,
	}
	if req.SectorID != nil {
		sid := competition.SectorID(*req.SectorID)
		in.SectorID = &sid
	}
	if req.EffectiveFrom != "" {
		from, err := parseDateField(req.EffectiveFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid dataInicioEfetivo (use YYYY-MM-DD)", err)
			return
		}
		in.EffectiveFrom = from
	}

	version, err := h.Parameters.CalculateAutomatic(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParameterDTO(version))
}

// =============================================================================
// EXPURGO HANDLERS
// =============================================================================

// ListExpurgos lists exclusion requests with optional filters.
// GET /api/expurgos?periodId=&sectorId=&criterionId=&status=&dataInicio=&dataFim=
func (h *Handler) ListExpurgos(w http.ResponseWriter, r *http.Request) {
	var filter expurgo.ListFilter

	periodID, err := queryInt64(r, "periodId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid periodId", err)
		return
	}
	if periodID != nil {
		pid := competition.PeriodID(*periodID)
		filter.PeriodID = &pid
	}
	sectorID, err := queryInt64(r, "sectorId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sectorId", err)
		return
	}
	if sectorID != nil {
		sid := competition.SectorID(*sectorID)
		filter.SectorID = &sid
	}
	criterionID, err := queryInt64(r, "criterionId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid criterionId", err)
		return
	}
	if criterionID != nil {
		cid := competition.CriterionID(*criterionID)
		filter.CriterionID = &cid
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := expurgo.Status(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("dataInicio"); raw != "" {
		from, err := competition.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid dataInicio (use YYYY-MM-DD)", err)
			return
		}
		filter.DataInicio = &from
	}
	if raw := r.URL.Query().Get("dataFim"); raw != "" {
		to, err := competition.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid dataFim (use YYYY-MM-DD)", err)
			return
		}
		filter.DataFim = &to
	}
	if raw := r.URL.Query().Get("registradoPor"); raw != "" {
		filter.RegistradoPor = &raw
	}

	expurgos, err := h.Expurgos.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpurgoDTOs(expurgos))
}

// GetExpurgo returns a single exclusion request.
func (h *Handler) GetExpurgo(w http.ResponseWriter, r *http.Request) {
	id := expurgo.ExpurgoID(chi.URLParam(r, "id"))

	e, err := h.Expurgos.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpurgoDTO(e))
}

// CreateExpurgo files a new exclusion request.
func (h *Handler) CreateExpurgo(w http.ResponseWriter, r *http.Request) {
	var req RequestExpurgoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Expurgos.Request(r.Context(), expurgo.RequestInput{
		PeriodID:                 competition.PeriodID(req.PeriodID),
		SectorID:                 competition.SectorID(req.SectorID),
		CriterionID:              competition.CriterionID(req.CriterionID),
		DataEvento:               req.DataEvento,
		DescricaoEvento:          req.DescricaoEvento,
		JustificativaSolicitacao: req.JustificativaSolicitacao,
		ValorSolicitado:          req.ValorSolicitado,
		Anexos:                   req.Anexos,
	}, actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpurgoDTO(e))
}

// ApproveExpurgo decides a pending request in favor, fully or partially.
// POST /api/expurgos/{id}/approve
func (h *Handler) ApproveExpurgo(w http.ResponseWriter, r *http.Request) {
	id := expurgo.ExpurgoID(chi.URLParam(r, "id"))

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Expurgos.Approve(r.Context(), id, expurgo.DecisionInput{
		ValorAprovado:          req.ValorAprovado,
		JustificativaAprovacao: req.JustificativaAprovacao,
		Observacoes:            req.Observacoes,
	}, actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpurgoDTO(e))
}

// RejectExpurgo decides a pending request against the requester.
// POST /api/expurgos/{id}/reject
func (h *Handler) RejectExpurgo(w http.ResponseWriter, r *http.Request) {
	id := expurgo.ExpurgoID(chi.URLParam(r, "id"))

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Expurgos.Reject(r.Context(), id, expurgo.DecisionInput{
		JustificativaRejeicao: req.JustificativaRejeicao,
		Observacoes:           req.Observacoes,
	}, actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpurgoDTO(e))
}

// =============================================================================
// HISTORY HANDLER
// =============================================================================

// GetHistory reconstructs the target timeline for a (criterion, sector)
// pair.
// GET /api/history?criterionId=&sectorId=&limit=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	criterionID, err := queryInt64(r, "criterionId")
	if err != nil || criterionID == nil {
		writeError(w, http.StatusBadRequest, "criterionId query parameter is required", err)
		return
	}
	sectorID, err := queryInt64(r, "sectorId")
	if err != nil || sectorID == nil {
		writeError(w, http.StatusBadRequest, "sectorId query parameter is required", err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
	}

	result, err := h.History.CriterionSectorHistory(r.Context(),
		competition.CriterionID(*criterionID), competition.SectorID(*sectorID), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

func (h *Handler) ListCriteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.Ref.ListCriteria(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list criteria", err)
		return
	}
	dtos := make([]CriterionDTO, len(criteria))
	for i, c := range criteria {
		dtos[i] = toCriterionDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.Ref.ListSectors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sectors", err)
		return
	}
	dtos := make([]SectorDTO, len(sectors))
	for i, s := range sectors {
		dtos[i] = SectorDTO{ID: int64(s.ID), Nome: s.Nome, Ativo: s.Ativo}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// actorFrom builds the acting user from the gateway headers. An empty ID
// means unauthenticated; the services refuse what needs identity.
func actorFrom(r *http.Request) competition.Actor {
	return competition.Actor{
		ID:   r.Header.Get("X-User-ID"),
		Nome: r.Header.Get("X-User-Name"),
		Role: competition.Role(r.Header.Get("X-User-Role")),
	}
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseDateField(raw string) (competition.Date, error) {
	return competition.ParseDate(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error kind to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case competition.IsValidation(err):
		status = http.StatusBadRequest
	case competition.IsAuthorization(err):
		status = http.StatusUnauthorized
	case competition.IsNotFound(err):
		status = http.StatusNotFound
	case competition.IsConflict(err):
		status = http.StatusConflict
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
