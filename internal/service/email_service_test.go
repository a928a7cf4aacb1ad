package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"mailwriter/internal/logger"
	"mailwriter/internal/model"
)

func TestEmailService_Generate(t *testing.T) {
	ann := &model.User{ID: 3, Name: "Ann"}

	tests := []struct {
		name      string
		prompt    string
		tone      string
		setupMock func(*MockCompleter)
		expected  string
	}{
		{
			name:     "empty prompt makes no call",
			prompt:   "   \n\t",
			expected: EmptyPromptReply,
		},
		{
			name:   "placeholders are patched",
			prompt: "ask for a day off",
			tone:   "friendly",
			setupMock: func(m *MockCompleter) {
				m.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
					return strings.Contains(p, "Write a friendly professional email.") &&
						strings.Contains(p, "- Use the sender name: Ann") &&
						strings.HasSuffix(p, "Request:\nask for a day off")
				})).Return("Subject: Leave\nDate\nDear Recipient's Name,\n...\nBest,\n[Your Name]", nil)
			},
			expected: "Subject: Leave\n\nDear Sir/Madam,\n...\nBest,\n[Ann]",
		},
		{
			name:   "bare placeholder",
			prompt: "thank the team",
			tone:   DefaultTone,
			setupMock: func(m *MockCompleter) {
				m.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
					return strings.HasPrefix(p, "Write a formal professional email.")
				})).Return("Regards, Your Name", nil)
			},
			expected: "Regards, Ann",
		},
		{
			name:   "blank tone is passed through",
			prompt: "thank the team",
			tone:   "",
			setupMock: func(m *MockCompleter) {
				m.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
					return strings.HasPrefix(p, "Write a  professional email.")
				})).Return("Thanks all", nil)
			},
			expected: "Thanks all",
		},
		{
			name:   "provider failure falls back",
			prompt: "anything",
			setupMock: func(m *MockCompleter) {
				m.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("502 bad gateway"))
			},
			expected: ServerErrorReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := new(MockCompleter)
			if tt.setupMock != nil {
				tt.setupMock(completer)
			}

			svc := NewEmailService(completer, logger.Nop())
			assert.Equal(t, tt.expected, svc.Generate(context.Background(), ann, tt.prompt, tt.tone))

			if tt.setupMock == nil {
				completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
			}
			completer.AssertExpectations(t)
		})
	}
}

func TestCleanDraft(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		sender   string
		expected string
	}{
		{"bracketed placeholder keeps brackets", "Best,\n[Your Name]", "Ann", "Best,\n[Ann]"},
		{"bare placeholder", "Best, Your Name", "Ann", "Best, Ann"},
		{"date stripped from inserted name", "Best, Your Name", "Dateline Smith", "Best, line Smith"},
		{"date stripped inside words", "Update on Date", "Ann", "Up on "},
		{"recipient", "Dear Recipient's Name,", "Ann", "Dear Sir/Madam,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanDraft(tt.text, tt.sender))
		})
	}
}
