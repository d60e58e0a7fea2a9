package strategy

import (
	"context"

	"go.uber.org/zap"

	"promptbuddies/model"
)

// Generator is the part of generator.Generator the router needs.
type Generator interface {
	GenerateNext(ctx context.Context, history []model.Turn) string
}

// Router pairs a Selector with the two persona generators.
type Router struct {
	selector    *Selector
	cooperative Generator
	adversarial Generator
	logger      *zap.Logger
}

// NewRouter creates a router. The two generators must not share state.
func NewRouter(selector *Selector, cooperative, adversarial Generator, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		selector:    selector,
		cooperative: cooperative,
		adversarial: adversarial,
		logger:      logger.Named("router"),
	}
}

// Next selects a persona for history and lets it write the next utterance.
// The utterance may be the generator's failure sentinel.
func (r *Router) Next(ctx context.Context, history []model.Turn) (string, Choice) {
	choice := r.selector.Select(ctx, history)
	r.logger.Info("persona selected", zap.Stringer("choice", choice))

	gen := r.cooperative
	if choice == Adversarial {
		gen = r.adversarial
	}
	return gen.GenerateNext(ctx, history), choice
}
