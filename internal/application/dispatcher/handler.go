package dispatcher

import (
	"context"

	"github.com/worktally/attendance-backend/internal/domain/event"
)

// Handler reacts to one dispatched domain event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo carries a registered handler plus the metadata exposed by
// ListHandlers
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
