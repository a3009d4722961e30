package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/google/uuid"
)

// ErrEmptySuggestionID is returned when no suggestion is named.
var ErrEmptySuggestionID = errors.New("suggestion id cannot be empty")

// DismissSuggestionCommand hides a suggestion from future listings.
type DismissSuggestionCommand struct {
	UserID       uuid.UUID
	SuggestionID string
}

// DismissSuggestionHandler handles the DismissSuggestionCommand.
type DismissSuggestionHandler struct {
	store domain.DismissalStore
}

// NewDismissSuggestionHandler creates a new DismissSuggestionHandler.
func NewDismissSuggestionHandler(store domain.DismissalStore) *DismissSuggestionHandler {
	return &DismissSuggestionHandler{store: store}
}

// Handle executes the DismissSuggestionCommand. Dismissing twice is a no-op.
func (h *DismissSuggestionHandler) Handle(ctx context.Context, cmd DismissSuggestionCommand) error {
	id := strings.TrimSpace(cmd.SuggestionID)
	if id == "" {
		return ErrEmptySuggestionID
	}
	return h.store.Dismiss(ctx, cmd.UserID, id)
}
