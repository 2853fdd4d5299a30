package broadcast

import (
	"encoding/json"
	"strings"

	"github.com/kilianp07/teamcast/core/broadcast"
	"github.com/kilianp07/teamcast/core/model"
)

type participantDTO struct {
	ID    string `json:"id" validate:"max=64"`
	Name  string `json:"name"`
	Group string `json:"group" validate:"max=64"`
	Phone string `json:"phone" validate:"max=64"`
}

// targetDTO is shared by send and preview requests.
type targetDTO struct {
	TargetType   string           `json:"targetType" validate:"max=32"`
	TargetGroup  string           `json:"targetGroup" validate:"max=64"`
	Participants []participantDTO `json:"participants" validate:"omitempty,max=49,dive"`
}

type sendRequest struct {
	SenderID string `json:"senderId" validate:"max=64"`
	Message  string `json:"message" validate:"max=4096"`
	targetDTO
}

func (t targetDTO) spec() (model.TargetSpec, error) {
	mode, ok := model.ParseTargetMode(t.TargetType)
	if !ok {
		return model.TargetSpec{}, model.NewValidationError(model.ReasonInvalidTarget, "unknown targetType "+t.TargetType)
	}
	if mode == model.TargetAll {
		return model.All(), nil
	}
	g, ok := model.ParseGroup(t.TargetGroup)
	if !ok {
		g = model.Group(strings.TrimSpace(t.TargetGroup))
	}
	spec := model.ByGroup(g)
	return spec, spec.Validate()
}

func (t targetDTO) participants() []model.Participant {
	if t.Participants == nil {
		return nil
	}
	out := make([]model.Participant, len(t.Participants))
	for i, p := range t.Participants {
		out[i] = model.Participant{ID: p.ID, Name: p.Name, Group: model.Group(p.Group), Phone: p.Phone}
	}
	return out
}

type outcomeDTO struct {
	Delivered bool            `json:"delivered"`
	Recipient model.Ref       `json:"recipient"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

type sendResponse struct {
	BroadcastID     string       `json:"broadcastId"`
	TotalRecipients int          `json:"totalRecipients"`
	DeliveredCount  int          `json:"deliveredCount"`
	FailedCount     int          `json:"failedCount"`
	Outcomes        []outcomeDTO `json:"outcomes"`
}

func newSendResponse(res *broadcast.Result) sendResponse {
	out := sendResponse{
		BroadcastID:     res.ID,
		TotalRecipients: res.Summary.TotalRecipients,
		DeliveredCount:  res.Summary.DeliveredCount,
		FailedCount:     res.Summary.FailedCount,
		Outcomes:        make([]outcomeDTO, 0, len(res.Summary.Outcomes)),
	}
	for _, o := range res.Summary.Outcomes {
		out.Outcomes = append(out.Outcomes, outcomeDTO{Delivered: o.Delivered(), Recipient: o.Recipient.Ref(), Detail: o.Detail})
	}
	return out
}

type previewRecipient struct {
	model.Ref
	Reachable bool `json:"reachable"`
}

type previewResponse struct {
	Count      int                `json:"count"`
	Recipients []previewRecipient `json:"recipients"`
}

func newPreviewResponse(ps []model.Participant) previewResponse {
	out := previewResponse{Count: len(ps), Recipients: make([]previewRecipient, 0, len(ps))}
	for _, p := range ps {
		out.Recipients = append(out.Recipients, previewRecipient{Ref: p.Ref(), Reachable: p.Reachable()})
	}
	return out
}
