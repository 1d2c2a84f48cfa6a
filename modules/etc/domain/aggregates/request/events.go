package request

import "github.com/google/uuid"

// CreatedEvent is published after a public submission commits.
type CreatedEvent struct {
	RequestID uuid.UUID
	Number    string
	Status    string
}

// StatusChangedEvent is published after any lifecycle transition commits.
type StatusChangedEvent struct {
	RequestID uuid.UUID
	Number    string
	From      string
	To        string
	ActorID   *uuid.UUID
}
