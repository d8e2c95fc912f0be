package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

func allMediaReady(g *domain.Game) bool {
	for _, p := range g.ActivePlayers() {
		if !g.State.IsReady(p.Meta.ID) {
			return false
		}
	}
	return true
}

// mediaReady starts the showing countdown once every player has the media
// or the download window has passed.
type mediaReady struct{ edge }

func newMediaReady() Handler {
	return &mediaReady{edge{"media-ready", domain.PhaseShowing, domain.PhaseShowing}}
}

func (h *mediaReady) CanTransition(ctx *Context) bool {
	if !h.at(ctx) || ctx.Game.State.QuestionState != domain.QuestionStateMediaDownloading || ctx.isForceSkip() {
		return false
	}
	return ctx.IsTimerExpired() || allMediaReady(ctx.Game)
}

func (h *mediaReady) Mutate(ctx *Context) (Mutation, error) {
	ctx.Game.State.QuestionState = domain.QuestionStateShowing
	ctx.Game.State.ReadyPlayers = nil
	return MediaReady{QuestionID: *ctx.Game.State.CurrentQuestion}, nil
}

func (h *mediaReady) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return startTimer(ctx, domain.ShowingDuration)
}

func (h *mediaReady) CollectBroadcasts(ctx *Context, _ Mutation, tr TimerResult) []broadcast.Intent {
	return []broadcast.Intent{
		broadcast.ToGame(broadcast.EventMediaDownloaded, broadcast.MediaDownloadedPayload{
			PlayerID: ctx.Actor.PlayerID,
			AllReady: true,
			Timer:    tr.Timer,
		}),
	}
}

// buzz hands the question to the first player who asks to answer.
type buzz struct{ edge }

func newBuzz() Handler {
	return &buzz{edge{"buzz", domain.PhaseShowing, domain.PhaseAnswering}}
}

func (h *buzz) CanTransition(ctx *Context) bool {
	if !h.at(ctx) || !ctx.IsUserAction() {
		return false
	}
	if _, ok := ctx.Payload.(BuzzPayload); !ok {
		return false
	}
	// The countdown may have run out before its expiry was handled.
	if t := ctx.currentTimer(); t != nil && t.Remaining(ctx.Now) <= 0 {
		return false
	}
	g := ctx.Game
	return g.State.QuestionState == domain.QuestionStateShowing &&
		!g.State.IsPaused &&
		g.CanBuzz(ctx.Actor.PlayerID)
}

func (h *buzz) Mutate(ctx *Context) (Mutation, error) {
	ctx.Game.State.AnsweringPlayer = intPtr(ctx.Actor.PlayerID)
	ctx.Game.State.QuestionState = domain.QuestionStateAnswering
	return AnswerRequested{PlayerID: ctx.Actor.PlayerID}, nil
}

// HandleTimer parks the showing countdown so it can resume if the answer is
// wrong, then starts the answering countdown.
func (h *buzz) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	tr := startTimer(ctx, domain.AnsweringDuration)
	if showing := ctx.currentTimer(); showing != nil {
		parked := showing.Clone()
		parked.Pause(ctx.Now)
		tr.Mutations = append([]TimerMutation{{Op: TimerSave, Suffix: domain.SavedTimerShowing, Timer: parked}}, tr.Mutations...)
	}
	return tr
}

func (h *buzz) CollectBroadcasts(_ *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	return []broadcast.Intent{
		broadcast.ToGame(broadcast.EventAnswerRequest, broadcast.AnswerRequestPayload{
			PlayerID: m.(AnswerRequested).PlayerID,
			Timer:    tr.Timer,
		}),
	}
}

// showingTimeout reveals the answer when the showing countdown runs out,
// everybody eligible has answered or skipped, or the showman skips.
type showingTimeout struct{ edge }

func newShowingTimeout() Handler {
	return &showingTimeout{edge{"showing-reveal", domain.PhaseShowing, domain.PhaseShowingAnswer}}
}

func (h *showingTimeout) CanTransition(ctx *Context) bool {
	if !h.at(ctx) {
		return false
	}
	if ctx.isForceSkip() {
		return true
	}
	if ctx.Game.State.QuestionState != domain.QuestionStateShowing {
		return false
	}
	return ctx.IsTimerExpired() || len(ctx.Game.EligibleAnswerers()) == 0
}

func (h *showingTimeout) Mutate(ctx *Context) (Mutation, error) {
	q, _ := ctx.Game.CurrentQuestion()
	if q == nil {
		return nil, domain.NewServerError("showing-reveal", "no current question")
	}
	revealAnswer(ctx.Game)
	return AnswerRevealed{Question: q, Forced: ctx.isForceSkip()}, nil
}

func (h *showingTimeout) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return dropSavedShowing(startTimer(ctx, domain.ShowingAnswerDuration))
}

func (h *showingTimeout) CollectBroadcasts(_ *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	return []broadcast.Intent{answerShowStart(m.(AnswerRevealed).Question, tr.Timer)}
}

func answerShowStart(q *domain.Question, timer *domain.Timer) broadcast.Intent {
	return broadcast.ToGame(broadcast.EventAnswerShowStart, broadcast.AnswerShowStartPayload{
		QuestionID: q.ID,
		Answer:     q.Answer,
		AnswerHint: q.AnswerHint,
		Timer:      timer,
	})
}
