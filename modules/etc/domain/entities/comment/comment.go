package comment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityInternalOnly        Visibility = "INTERNAL_ONLY"
	VisibilityInternalAndCustomer Visibility = "INTERNAL_AND_CUSTOMER"
)

// Comment is a note on a request. AuthorID is nil for system comments.
type Comment struct {
	ID         uuid.UUID
	RequestID  uuid.UUID
	Text       string
	Visibility Visibility
	AuthorID   *uuid.UUID
	CreatedAt  time.Time
}

func New(requestID uuid.UUID, text string, visibility Visibility, authorID *uuid.UUID) *Comment {
	return &Comment{
		RequestID:  requestID,
		Text:       strings.TrimSpace(text),
		Visibility: visibility,
		AuthorID:   authorID,
	}
}

type FindParams struct {
	RequestID    *uuid.UUID
	CustomerOnly bool
	Limit        int
	Offset       int
}
