package feedback

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/feedpulse/feedpulse/internal/alerting/service/engine"
	"github.com/feedpulse/feedpulse/internal/alerting/service/notify"
	"github.com/feedpulse/feedpulse/internal/metrics"
)

// Handler serves the public feedback submission endpoint. Each accepted
// submission synchronously triggers one alert run before responding.
type Handler struct {
	Store       Store
	Recorder    *notify.Recorder
	Coordinator *engine.Coordinator
}

func RegisterFeedbackRoutes(router *gin.Engine, h *Handler) {
	router.POST("/api/feedbacks", h.SubmitFeedback)
}

type responseInput struct {
	PerguntaID uuid.UUID `json:"perguntaId"`
	Tipo       string    `json:"tipo"`
	ValorNota  *int      `json:"valorNota"`
	ValorBool  *bool     `json:"valorBool"`
	ValorOpcao *string   `json:"valorOpcao"`
	ValorTexto *string   `json:"valorTexto"`
}

type submitFeedbackRequest struct {
	CategoriaID         uuid.UUID       `json:"categoriaId"`
	CursoOuTurma        string          `json:"cursoOuTurma"`
	NomeIdentificado    string          `json:"nomeIdentificado"`
	ContatoIdentificado string          `json:"contatoIdentificado"`
	Respostas           []responseInput `json:"respostas"`
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req submitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}
	if len(req.Respostas) == 0 {
		badRequest(c, "É necessário informar ao menos uma resposta.")
		return
	}

	ctx := c.Request.Context()

	catOk, err := h.Store.CategoryActive(ctx, req.CategoriaID)
	if err != nil {
		internalError(c, err)
		return
	}
	if !catOk {
		badRequest(c, "Categoria inválida ou inativa.")
		return
	}

	questionIDs := make([]uuid.UUID, 0, len(req.Respostas))
	seen := map[uuid.UUID]struct{}{}
	for _, r := range req.Respostas {
		if _, ok := seen[r.PerguntaID]; ok {
			continue
		}
		seen[r.PerguntaID] = struct{}{}
		questionIDs = append(questionIDs, r.PerguntaID)
	}
	valid, err := h.Store.ValidQuestionIDs(ctx, req.CategoriaID, questionIDs)
	if err != nil {
		internalError(c, err)
		return
	}
	if len(valid) != len(questionIDs) {
		badRequest(c, "Existe pergunta inválida para esta categoria.")
		return
	}

	fb := &Feedback{
		ID:                uuid.New(),
		CategoryID:        req.CategoriaID,
		CourseClass:       strings.TrimSpace(req.CursoOuTurma),
		IdentifiedName:    strings.TrimSpace(req.NomeIdentificado),
		IdentifiedContact: strings.TrimSpace(req.ContatoIdentificado),
		CreatedAt:         time.Now().UTC(),
	}
	for _, r := range req.Respostas {
		resp, msg := buildResponse(r)
		if msg != "" {
			badRequest(c, msg)
			return
		}
		fb.Responses = append(fb.Responses, *resp)
	}

	if err := h.Store.Insert(ctx, fb); err != nil {
		internalError(c, err)
		return
	}

	// One submission notification: identified wins over the plain info one.
	if fb.Identified() {
		err = h.Recorder.RecordIdentifiedFeedback(ctx, fb.ID, fb.CategoryID, fb.IdentifiedName, fb.IdentifiedContact)
	} else {
		err = h.Recorder.RecordNewFeedback(ctx, fb.ID, fb.CategoryID)
	}
	if err != nil {
		internalError(c, err)
		return
	}

	// The feedback write and the alert run are not transactional: the row
	// above survives even when the run fails.
	metrics.RunsTotal.WithLabelValues("submission").Inc()
	result, err := h.Coordinator.Run(ctx, false)
	if err != nil {
		internalError(c, err)
		return
	}
	if err := h.Recorder.RecordRun(ctx, result); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": fb.ID})
}

// buildResponse validates one answer against its declared kind and returns a
// user-facing message when it is malformed.
func buildResponse(in responseInput) (*Response, string) {
	resp := &Response{
		ID:         uuid.New(),
		QuestionID: in.PerguntaID,
		Kind:       in.Tipo,
	}
	switch in.Tipo {
	case KindRating:
		if in.ValorNota == nil || *in.ValorNota < 0 || *in.ValorNota > 5 {
			return nil, "Nota inválida na resposta da pergunta " + in.PerguntaID.String() + "."
		}
		resp.Rating = in.ValorNota
	case KindBool:
		if in.ValorBool == nil {
			return nil, "Valor inválido na resposta da pergunta " + in.PerguntaID.String() + "."
		}
		resp.BoolValue = in.ValorBool
	case KindOption:
		if in.ValorOpcao == nil || strings.TrimSpace(*in.ValorOpcao) == "" {
			return nil, "Opção inválida na resposta da pergunta " + in.PerguntaID.String() + "."
		}
		resp.OptionValue = in.ValorOpcao
	case KindText:
		if in.ValorTexto == nil || strings.TrimSpace(*in.ValorTexto) == "" {
			return nil, "Texto inválido na resposta da pergunta " + in.PerguntaID.String() + "."
		}
		resp.TextValue = in.ValorTexto
	default:
		return nil, "Tipo inválido na resposta da pergunta " + in.PerguntaID.String() + "."
	}
	return resp, ""
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_PARAMETER", "message": msg}})
}

func internalError(c *gin.Context, err error) {
	log.Error().Err(err).Msg("feedback submission failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL_ERROR", "message": "unexpected error"}})
}
