// Package router selects the specialist that handles a request using a
// deterministic keyword/priority scheme. Selection is a pure computation over
// a registry snapshot: it never blocks and never fails for a non-empty registry.
package router

import (
	"iter"
	"strings"

	"github.com/gautammanak1/taskmesh/core"
	"github.com/gautammanak1/taskmesh/logging"
)

// Catalog is the read-only view of specialists the router consults.
// *registry.Registry satisfies it.
type Catalog interface {
	All() iter.Seq[core.SpecialistDescriptor]
}

// Score describes how one specialist matched a request.
type Score struct {
	Specialist core.SpecialistDescriptor
	Matched    []string
	Order      int
}

// MatchCount returns the number of keywords found in the request.
func (s Score) MatchCount() int { return len(s.Matched) }

// Decision is the outcome of routing one request.
type Decision struct {
	Specialist core.SpecialistDescriptor
	MatchCount int
	// Fallback is set when no keyword matched and the default was chosen.
	Fallback bool
}

// Options configures a Router.
type Options struct {
	Logger logging.Logger
}

// Router implements keyword-match routing.
type Router struct {
	logger logging.Logger
}

// New creates a Router.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Router{logger: logging.OrNoOp(opts.Logger)}
}

// Select returns the specialist that should handle text.
func (r *Router) Select(text string, catalog Catalog) (core.SpecialistDescriptor, error) {
	d, err := r.Route(text, catalog)
	if err != nil {
		return core.SpecialistDescriptor{}, err
	}

	return d.Specialist, nil
}

// Route selects a specialist and reports why. Among specialists with at least
// one keyword occurring in the lower-cased text, the highest priority wins,
// then the highest match count, then the earliest registration. Without any
// match the default specialist is chosen: the first flagged Default, else the
// first registered.
func (r *Router) Route(text string, catalog Catalog) (Decision, error) {
	normalized := strings.ToLower(text)

	var (
		best     *Score
		fallback *core.SpecialistDescriptor
		first    *core.SpecialistDescriptor
	)

	order := 0
	for d := range catalog.All() {
		if first == nil {
			first = &d
		}
		if d.Default && fallback == nil {
			fallback = &d
		}

		s := score(d, normalized, order)
		order++

		if s.MatchCount() == 0 {
			continue
		}
		if best == nil || beats(s, *best) {
			best = &s
		}
	}

	if first == nil {
		return Decision{}, &core.NoSpecialistAvailableError{}
	}

	if best != nil {
		r.logger.Debug("router.match specialist=%s matches=%d", best.Specialist.Name, best.MatchCount())
		return Decision{Specialist: best.Specialist, MatchCount: best.MatchCount()}, nil
	}

	if fallback == nil {
		fallback = first
	}

	r.logger.Debug("router.fallback specialist=%s", fallback.Name)

	return Decision{Specialist: *fallback, Fallback: true}, nil
}

// Explain scores every specialist against text, in registration order.
func (r *Router) Explain(text string, catalog Catalog) []Score {
	normalized := strings.ToLower(text)

	var scores []Score

	order := 0
	for d := range catalog.All() {
		scores = append(scores, score(d, normalized, order))
		order++
	}

	return scores
}

func score(d core.SpecialistDescriptor, normalized string, order int) Score {
	s := Score{Specialist: d, Order: order}
	for _, kw := range d.Keywords {
		if kw != "" && strings.Contains(normalized, kw) {
			s.Matched = append(s.Matched, kw)
		}
	}

	return s
}

// beats reports whether a ranks strictly ahead of b. Registration order only
// decides when priority and match count are equal, and since candidates are
// visited in that order an equal score never displaces the incumbent.
func beats(a, b Score) bool {
	if a.Specialist.Priority != b.Specialist.Priority {
		return a.Specialist.Priority > b.Specialist.Priority
	}
	if a.MatchCount() != b.MatchCount() {
		return a.MatchCount() > b.MatchCount()
	}

	return a.Order < b.Order
}
