package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lomoval/calendar-helper/internal/llm"
	"github.com/lomoval/calendar-helper/internal/prompts"
	log "github.com/sirupsen/logrus"
)

const (
	// FailClosedReason is returned whenever the classification itself could not be obtained.
	FailClosedReason = "unable to verify the request, please try again"
	defaultRejection = "the request is not related to calendar events"
)

type safetyVerdict struct {
	IsSafe *bool  `json:"is_safe" validate:"required"`
	Reason string `json:"reason"`
}

// SafetyValidator classifies an instruction as a calendar request. It fails closed.
type SafetyValidator struct {
	client    llm.Client
	templates prompts.Templates
}

func NewSafetyValidator(client llm.Client, templates prompts.Templates) *SafetyValidator {
	return &SafetyValidator{client: client, templates: templates}
}

func (v *SafetyValidator) Validate(ctx context.Context, instruction string) (bool, string) {
	resp, err := v.client.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: v.templates.Safety},
			{Role: llm.RoleUser, Content: fmt.Sprintf(v.templates.SafetyRequest, instruction)},
		},
		ResponseFormat: llm.JSONObject,
	})
	if err != nil {
		log.WithError(err).Warn("safety classification request failed")
		return false, FailClosedReason
	}

	var verdict safetyVerdict
	if err := json.Unmarshal([]byte(resp.Content), &verdict); err != nil {
		log.WithError(err).Warn("safety classification is not valid JSON")
		return false, FailClosedReason
	}
	if err := validate.Struct(verdict); err != nil {
		log.WithError(err).Warn("safety classification misses is_safe")
		return false, FailClosedReason
	}

	reason := strings.TrimSpace(verdict.Reason)
	if !*verdict.IsSafe && reason == "" {
		reason = defaultRejection
	}
	return *verdict.IsSafe, reason
}
