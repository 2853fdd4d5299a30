// Package broadcast serves POST /api/send and POST /api/preview.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/teamcast/api"
	"github.com/kilianp07/teamcast/core/broadcast"
	"github.com/kilianp07/teamcast/core/logger"
	"github.com/kilianp07/teamcast/core/model"
)

const maxBodyBytes = 1 << 20

// Service is the part of broadcast.Service used by the handlers.
type Service interface {
	Broadcast(ctx context.Context, req broadcast.Request) (*broadcast.Result, error)
	Preview(participants []model.Participant, target model.TargetSpec) ([]model.Participant, error)
}

// Handler serves the broadcast endpoints.
type Handler struct {
	svc      Service
	validate *validator.Validate
	log      logger.Logger
	stop     context.Context
}

func NewHandler(svc Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

// StopOn makes running broadcasts stop when ctx is canceled. A broadcast
// otherwise outlives the client connection that started it.
func (h *Handler) StopOn(ctx context.Context) *Handler {
	h.stop = ctx
	return h
}

// broadcastContext detaches the fan-out from the request so a client
// disconnect never cuts it short.
func (h *Handler) broadcastContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	if h.stop == nil {
		return ctx, cancel
	}
	release := context.AfterFunc(h.stop, cancel)
	return ctx, func() {
		release()
		cancel()
	}
}

// Send handles POST /api/send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sendRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.fail(w, model.NewValidationError(model.ReasonEmptyMessage, "message is empty"))
		return
	}
	if err := h.check(&req); err != nil {
		h.fail(w, err)
		return
	}
	target, err := req.spec()
	if err != nil {
		h.fail(w, err)
		return
	}
	ctx, cancel := h.broadcastContext(r)
	defer cancel()
	res, err := h.svc.Broadcast(ctx, broadcast.Request{
		SenderID:     req.SenderID,
		Message:      req.Message,
		Target:       target,
		Participants: req.participants(),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, newSendResponse(res))
}

// Preview handles POST /api/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req targetDTO
	if err := readJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.check(&req); err != nil {
		h.fail(w, err)
		return
	}
	target, err := req.spec()
	if err != nil {
		h.fail(w, err)
		return
	}
	recipients, err := h.svc.Preview(req.participants(), target)
	if err != nil {
		h.fail(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, newPreviewResponse(recipients))
}

func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return model.NewValidationError(model.ReasonMalformedBody, "cannot read body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return model.NewValidationError(model.ReasonMalformedBody, fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// check applies the struct validation tags of v.
func (h *Handler) check(v any) error {
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Participants" && fe.Tag() == "max" {
					return model.NewValidationError(model.ReasonTooManyParticipants, "at most 49 participants allowed")
				}
			}
			return model.NewValidationError(model.ReasonMalformedBody, verrs[0].Namespace()+" is invalid")
		}
		return model.NewValidationError(model.ReasonMalformedBody, err.Error())
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		api.WriteError(w, http.StatusBadRequest, ve.Reason, ve.Msg)
		return
	}
	if errors.Is(err, model.ErrCapacity) {
		api.WriteError(w, http.StatusBadRequest, model.ReasonTooManyParticipants, err.Error())
		return
	}
	if !errors.Is(err, broadcast.ErrUnexpected) {
		h.log.Errorf("broadcast request failed: %v", err)
	}
	api.WriteError(w, http.StatusInternalServerError, api.ReasonUnexpected, "unexpected error")
}
