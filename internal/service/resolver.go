package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/hash"
)

// Outcome is the terminal state of a resolve.
type Outcome int

const (
	OutcomeResolved Outcome = iota + 1
	OutcomeNotFound
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Resolution is the result of Resolve.
// Mapping is set only for OutcomeResolved and carries the click count after the increment.
type Resolution struct {
	Outcome Outcome
	Hash    string
	Mapping *entity.Mapping
}

// Resolver turns hashes back into URLs and counts clicks.
type Resolver struct {
	store    Store
	recorder Recorder
}

// NewResolver creates a Resolver.
func NewResolver(store Store, recorder Recorder) *Resolver {
	return &Resolver{
		store:    store,
		recorder: recorder,
	}
}

// Resolve validates h, looks it up and increments its click count.
// The returned error is non-nil only for store failures.
func (r *Resolver) Resolve(ctx context.Context, h string) (Resolution, error) {
	const op = "service.Resolver.Resolve"

	res := Resolution{Hash: h}

	if !hash.Valid(h) {
		res.Outcome = OutcomeInvalid
		r.recorder.RecordResolve(res.Outcome.String())
		return res, nil
	}

	m, err := r.store.Get(ctx, h)
	if err != nil {
		if errors.Is(err, entity.ErrMappingNotFound) {
			res.Outcome = OutcomeNotFound
			r.recorder.RecordResolve(res.Outcome.String())
			return res, nil
		}

		return res, fmt.Errorf("%s: failed to get mapping: %w", op, err)
	}

	count, err := r.store.IncrementClickCount(ctx, h)
	if err != nil {
		if errors.Is(err, entity.ErrMappingNotFound) {
			res.Outcome = OutcomeNotFound
			r.recorder.RecordResolve(res.Outcome.String())
			return res, nil
		}

		return res, fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	m.ClickCount = count

	res.Outcome = OutcomeResolved
	res.Mapping = m
	r.recorder.RecordResolve(res.Outcome.String())

	return res, nil
}
