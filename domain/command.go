package domain

import (
	"chat-sync/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SendMessageCommand is the write intent of a participant.
// The backend assigns the id and the creation time.
type SendMessageCommand struct {
	ConversationID ConversationID `validate:"required"`
	SenderID       ParticipantID  `validate:"required"`
	Content        string         `validate:"required"`
}

// Validate checks the command shape. maxContentLength <= 0 disables the
// length check.
func (c SendMessageCommand) Validate(maxContentLength int) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: blank content", errors.ErrInvalidMessage)
	}
	if maxContentLength > 0 {
		if err := validate.Var(c.Content, fmt.Sprintf("max=%d", maxContentLength)); err != nil {
			return fmt.Errorf("%w: content longer than %d characters", errors.ErrInvalidMessage, maxContentLength)
		}
	}
	return nil
}
