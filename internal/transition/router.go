package transition

import (
	"fmt"
	"strings"

	"github.com/dom/quiz-engine/internal/domain"
)

// MaxChainDepth bounds CONDITION_MET chaining in Run.
const MaxChainDepth = 8

// Router dispatches a context to the single handler whose guard accepts it.
type Router struct {
	byFrom map[domain.GamePhase][]Handler
	all    []Handler
}

func NewRouter(handlers ...Handler) *Router {
	r := &Router{byFrom: make(map[domain.GamePhase][]Handler)}
	for _, h := range handlers {
		r.byFrom[h.From()] = append(r.byFrom[h.From()], h)
		r.all = append(r.all, h)
	}
	return r
}

// NewDefaultRouter registers every game edge.
func NewDefaultRouter() *Router {
	return NewRouter(Handlers()...)
}

func (r *Router) Handlers() []Handler {
	return r.all
}

// Match returns the handlers whose guard accepts ctx.
func (r *Router) Match(ctx *Context) []Handler {
	var matched []Handler
	for _, h := range r.byFrom[ctx.Phase()] {
		if h.CanTransition(ctx) {
			matched = append(matched, h)
		}
	}
	return matched
}

// Transition fires at most one edge. No matching edge is not an error: the
// result has Success false and the game is untouched. More than one match
// means the guards overlap, which is a server error.
func (r *Router) Transition(ctx *Context) (*Result, error) {
	if ctx.Game == nil {
		return nil, domain.NewServerError("transition", "context without game")
	}
	phase := ctx.Phase()
	matched := r.Match(ctx)
	switch len(matched) {
	case 0:
		return &Result{Success: false, From: phase, To: phase, Game: ctx.Game}, nil
	case 1:
	default:
		names := make([]string, 0, len(matched))
		for _, h := range matched {
			names = append(names, h.Name())
		}
		return nil, domain.NewServerError("transition",
			"%d handlers accept %s on %s: %s", len(matched), ctx.Trigger, phase, strings.Join(names, ", "))
	}

	h := matched[0]
	m, err := h.Mutate(ctx)
	if err != nil {
		if domain.KindOf(err) == domain.KindClient {
			return nil, err
		}
		return nil, &domain.ServerError{Op: "transition " + h.Name(), Err: err}
	}

	tr := h.HandleTimer(ctx, m)
	if tr.Timer != nil && ctx.Game.State.IsPaused {
		tr.Timer.Pause(ctx.Now)
	}
	ctx.Game.State.Timer = tr.Timer

	return &Result{
		Success:        true,
		From:           h.From(),
		To:             h.To(),
		Game:           ctx.Game,
		Mutation:       m,
		Broadcasts:     h.CollectBroadcasts(ctx, m, tr),
		Timer:          tr.Timer,
		TimerMutations: tr.Mutations,
		Steps:          []Step{{Handler: h.Name(), From: h.From(), To: h.To(), Mutation: m}},
		Finished:       h.To() == domain.PhaseGameFinished,
	}, nil
}

// Run fires a transition and then keeps re-evaluating with CONDITION_MET
// until nothing matches, concatenating the results.
func (r *Router) Run(ctx *Context) (*Result, error) {
	first, err := r.Transition(ctx)
	if err != nil || !first.Success {
		return first, err
	}

	total := first
	chained := *ctx
	for depth := 1; ; depth++ {
		if depth >= MaxChainDepth {
			return nil, domain.NewServerError("transition", "chain exceeded %d steps at %s", MaxChainDepth, total.To)
		}
		chained.Trigger = TriggerConditionMet
		chained.Actor = SystemActor()
		chained.Payload = nil
		chained.ActiveTimer = total.Timer

		next, err := r.Transition(&chained)
		if err != nil {
			return nil, fmt.Errorf("chain after %s: %w", total.To, err)
		}
		if !next.Success {
			return total, nil
		}
		total.To = next.To
		total.Mutation = next.Mutation
		total.Broadcasts = append(total.Broadcasts, next.Broadcasts...)
		total.Timer = next.Timer
		total.TimerMutations = append(total.TimerMutations, next.TimerMutations...)
		total.Steps = append(total.Steps, next.Steps...)
		total.Finished = total.Finished || next.Finished
	}
}
