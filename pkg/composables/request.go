package composables

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/etc-portal/pkg/constants"
)

var (
	ErrNoLogger = errors.New("logger not found")
	ErrNoActor  = errors.New("no authenticated actor in context")
)

type Params struct {
	IP            string
	UserAgent     string
	Authenticated bool
	Request       *http.Request
	Writer        http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the request-scoped logger from the context, falling back to
// the standard logger so library code never needs a nil check.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger.(*logrus.Entry)
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// WithActorID attaches the authenticated staff user to the context.
func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.ActorKey, actorID)
}

// UseActorID returns the authenticated actor, or ErrNoActor for anonymous
// (customer-originated) contexts.
func UseActorID(ctx context.Context) (uuid.UUID, error) {
	actor := ctx.Value(constants.ActorKey)
	if actor == nil {
		return uuid.Nil, ErrNoActor
	}
	id, ok := actor.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoActor
	}
	return id, nil
}

// ActorIDOrNil is for audit attribution, where system-originated mutations are
// recorded with a null actor.
func ActorIDOrNil(ctx context.Context) *uuid.UUID {
	id, err := UseActorID(ctx)
	if err != nil {
		return nil
	}
	return &id
}
