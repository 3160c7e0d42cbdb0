/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Parameters:
    ParameterDTO, CreateParameterRequest, NewVersionRequest,
    CalculateRequest, DeleteParameterRequest

  Expurgos:
    ExpurgoDTO, RequestExpurgoRequest, DecisionRequest

  History:
    history.Result marshals itself; no wrapper needed.

VALIDATION:
  Validation is done in the domain services, not in DTOs. DTOs are pure
  data carriers; handlers only parse shapes and dates.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/expurgo"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
)

// =============================================================================
// PARAMETER TYPES
// =============================================================================

// ParameterDTO represents a target version in API responses.
type ParameterDTO struct {
	ID            string  `json:"id"`
	CriterionID   int64   `json:"criterionId"`
	SectorID      *int64  `json:"sectorId"`
	PeriodID      int64   `json:"competitionPeriodId"`
	Valor         string  `json:"valor"`
	EffectiveFrom string  `json:"dataInicioEfetivo"`
	EffectiveTo   *string `json:"dataFimEfetivo"`
	Justification string  `json:"justificativa"`
	CreatedBy     string  `json:"criadoPor"`
	CreatedAt     string  `json:"criadoEm"`

	Source   string               `json:"origem"` // "manual" | "auto"
	Metadata *CalculationMetadata `json:"metadadosCalculo,omitempty"`
}

// CalculationMetadata carries the provenance of an automatic calculation.
type CalculationMetadata struct {
	Method            string `json:"calculationMethod"`
	AdjustmentPercent string `json:"calculationAdjustment"`
	BaseValue         string `json:"baseValue"`
	RoundingMethod    string `json:"roundingMethod"`
	DecimalPlaces     int32  `json:"decimalPlaces"`
}

type CreateParameterRequest struct {
	CriterionID   int64  `json:"criterionId"`
	SectorID      *int64 `json:"sectorId"`
	PeriodID      int64  `json:"competitionPeriodId"`
	Valor         string `json:"valor"`
	EffectiveFrom string `json:"dataInicioEfetivo"`
	Justification string `json:"justificativa"`
}

type NewVersionRequest struct {
	Valor                 string  `json:"valor"`
	Justification         string  `json:"justificativa"`
	EffectiveFrom         string  `json:"dataInicioEfetivo"`
	EffectiveToOfPrevious *string `json:"dataFimEfetivoAnterior"`
}

type CalculateRequest struct {
	CriterionID       int64  `json:"criterionId"`
	SectorID          *int64 `json:"sectorId"`
	PeriodID          int64  `json:"competitionPeriodId"`
	Method            string `json:"calculationMethod"`
	AdjustmentPercent string `json:"calculationAdjustment"`
	RoundingMethod    string `json:"roundingMethod"`
	DecimalPlaces     int32  `json:"decimalPlaces"`
	EffectiveFrom     string `json:"dataInicioEfetivo"`
	Justification     string `json:"justificativa"`
}

type DeleteParameterRequest struct {
	Justification string `json:"justificativa"`
}

func toParameterDTO(v *parameter.Version) ParameterDTO {
	dto := ParameterDTO{
		ID:            string(v.ID),
		CriterionID:   int64(v.Tuple.CriterionID),
		PeriodID:      int64(v.Tuple.PeriodID),
		Valor:         v.Valor.String(),
		EffectiveFrom: v.EffectiveFrom.String(),
		Justification: v.Justification,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
		Source:        string(v.Metadata.Source),
	}
	if v.Tuple.SectorID != nil {
		sid := int64(*v.Tuple.SectorID)
		dto.SectorID = &sid
	}
	if v.EffectiveTo != nil {
		to := v.EffectiveTo.String()
		dto.EffectiveTo = &to
	}
	if v.Metadata.Source == parameter.SourceAuto {
		dto.Metadata = &CalculationMetadata{
			Method:            string(v.Metadata.Method),
			AdjustmentPercent: v.Metadata.AdjustmentPercent.String(),
			BaseValue:         v.Metadata.BaseValue.String(),
			RoundingMethod:    string(v.Metadata.RoundingMethod),
			DecimalPlaces:     v.Metadata.DecimalPlaces,
		}
	}
	return dto
}

func toParameterDTOs(versions []*parameter.Version) []ParameterDTO {
	dtos := make([]ParameterDTO, len(versions))
	for i, v := range versions {
		dtos[i] = toParameterDTO(v)
	}
	return dtos
}

// =============================================================================
// EXPURGO TYPES
// =============================================================================

// ExpurgoDTO represents an exclusion request in API responses.
type ExpurgoDTO struct {
	ID                       string   `json:"id"`
	PeriodID                 int64    `json:"competitionPeriodId"`
	SectorID                 int64    `json:"sectorId"`
	CriterionID              int64    `json:"criterionId"`
	DataEvento               string   `json:"dataEvento"`
	DescricaoEvento          string   `json:"descricaoEvento"`
	JustificativaSolicitacao string   `json:"justificativaSolicitacao"`
	ValorSolicitado          string   `json:"valorSolicitado"`
	ValorAprovado            *string  `json:"valorAprovado"`
	Status                   string   `json:"status"`
	RegistradoPor            string   `json:"registradoPor"`
	RegistradoEm             string   `json:"registradoEm"`
	AprovadoPor              *string  `json:"aprovadoPor,omitempty"`
	DecididoEm               *string  `json:"decididoEm,omitempty"`
	JustificativaAprovacao   *string  `json:"justificativaAprovacao,omitempty"`
	JustificativaRejeicao    *string  `json:"justificativaRejeicao,omitempty"`
	Observacoes              *string  `json:"observacoes,omitempty"`
	Anexos                   []string `json:"anexos,omitempty"`
}

type RequestExpurgoRequest struct {
	PeriodID                 int64    `json:"competitionPeriodId"`
	SectorID                 int64    `json:"sectorId"`
	CriterionID              int64    `json:"criterionId"`
	DataEvento               string   `json:"dataEvento"`
	DescricaoEvento          string   `json:"descricaoEvento"`
	JustificativaSolicitacao string   `json:"justificativaSolicitacao"`
	ValorSolicitado          string   `json:"valorSolicitado"`
	Anexos                   []string `json:"anexos"`
}

type DecisionRequest struct {
	ValorAprovado          string `json:"valorAprovado"`
	JustificativaAprovacao string `json:"justificativaAprovacao"`
	JustificativaRejeicao  string `json:"justificativaRejeicao"`
	Observacoes            string `json:"observacoes"`
}

func toExpurgoDTO(e *expurgo.Expurgo) ExpurgoDTO {
	dto := ExpurgoDTO{
		ID:                       string(e.ID),
		PeriodID:                 int64(e.PeriodID),
		SectorID:                 int64(e.SectorID),
		CriterionID:              int64(e.CriterionID),
		DataEvento:               e.DataEvento.String(),
		DescricaoEvento:          e.DescricaoEvento,
		JustificativaSolicitacao: e.JustificativaSolicitacao,
		ValorSolicitado:          e.ValorSolicitado.String(),
		Status:                   string(e.Status),
		RegistradoPor:            e.RegistradoPor,
		RegistradoEm:             e.RegistradoEm.Format(time.RFC3339),
		Anexos:                   e.Anexos,
	}
	if e.ValorAprovado != nil {
		va := e.ValorAprovado.String()
		dto.ValorAprovado = &va
	}
	if e.AprovadoPor != "" {
		dto.AprovadoPor = strPtr(e.AprovadoPor)
	}
	if e.DecididoEm != nil {
		at := e.DecididoEm.Format(time.RFC3339)
		dto.DecididoEm = &at
	}
	if e.JustificativaAprovacao != "" {
		dto.JustificativaAprovacao = strPtr(e.JustificativaAprovacao)
	}
	if e.JustificativaRejeicao != "" {
		dto.JustificativaRejeicao = strPtr(e.JustificativaRejeicao)
	}
	if e.Observacoes != "" {
		dto.Observacoes = strPtr(e.Observacoes)
	}
	return dto
}

func toExpurgoDTOs(expurgos []*expurgo.Expurgo) []ExpurgoDTO {
	dtos := make([]ExpurgoDTO, len(expurgos))
	for i, e := range expurgos {
		dtos[i] = toExpurgoDTO(e)
	}
	return dtos
}

// =============================================================================
// COMMON TYPES
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CriterionDTO and SectorDTO expose the reference data for clients that
// build selection lists.
type CriterionDTO struct {
	ID              int64  `json:"id"`
	Nome            string `json:"nome"`
	UnidadeMedida   string `json:"unidadeMedida"`
	SentidoMelhor   string `json:"sentidoMelhor"`
	Ativo           bool   `json:"ativo"`
	ElegivelExpurgo bool   `json:"elegivelExpurgo"`
}

type SectorDTO struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Ativo bool   `json:"ativo"`
}

func toCriterionDTO(c competition.Criterion) CriterionDTO {
	return CriterionDTO{
		ID:              int64(c.ID),
		Nome:            c.Nome,
		UnidadeMedida:   c.UnidadeMedida,
		SentidoMelhor:   string(c.SentidoMelhor),
		Ativo:           c.Ativo,
		ElegivelExpurgo: expurgo.CriterionEligible(c.Nome),
	}
}

func strPtr(s string) *string {
	return &s
}
