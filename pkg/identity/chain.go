package identity

import (
	"context"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var chainTracer = otel.Tracer("idgate/identity")

// Customizer is a single enrichment step applied to the in-flight draft.
// Implementations may mutate the draft or return a replacement; returning
// (nil, nil) keeps the current draft. An error aborts the remainder of the
// chain for this event.
type Customizer interface {
	// Order defines the total execution order; lower runs first.
	Order() int
	Apply(ctx context.Context, event *AuthEvent, draft *UserDraft) (*UserDraft, error)
}

const (
	// OrderFirst runs before any other registered customizer.
	OrderFirst = math.MinInt
	// OrderLast is reserved for account provisioning, which must observe
	// every other enrichment before persisting.
	OrderLast = math.MaxInt
)

// Chain executes registered customizers in ascending Order. The chain itself
// is stateless and re-entrant; per-event state lives on the draft.
type Chain struct {
	customizers []Customizer
}

// NewChain builds a chain from the given customizers, sorted by Order.
// Registration order breaks ties.
func NewChain(customizers ...Customizer) *Chain {
	c := &Chain{}
	for _, cust := range customizers {
		c.Register(cust)
	}
	return c
}

// Register adds a customizer, keeping the execution order total.
func (c *Chain) Register(cust Customizer) {
	c.customizers = append(c.customizers, cust)
	sort.SliceStable(c.customizers, func(i, j int) bool {
		return c.customizers[i].Order() < c.customizers[j].Order()
	})
}

// Apply runs every customizer against the draft, strictly sequentially:
// each step completes, including any directory I/O, before the next begins.
// A cancelled context aborts between steps without committing partial state.
func (c *Chain) Apply(ctx context.Context, event *AuthEvent, draft *UserDraft) (*UserDraft, error) {
	ctx, span := chainTracer.Start(ctx, "identity.chain.apply",
		trace.WithAttributes(
			attribute.String("event.kind", string(event.Kind)),
			attribute.String("event.provider", event.Provider),
			attribute.Int("chain.length", len(c.customizers)),
		))
	defer span.End()

	current := draft
	for _, cust := range c.customizers {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		next, err := cust.Apply(ctx, event, current)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}
