package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

func isStart(ctx *Context) bool {
	_, ok := ctx.Payload.(StartPayload)
	return ok && ctx.IsUserAction()
}

func firstRoundType(g *domain.Game) domain.RoundType {
	if len(g.Package.Rounds) == 0 {
		return ""
	}
	return g.Package.Rounds[0].Type
}

// startGame moves LOBBY into the first regular round.
type startGame struct{ edge }

func newStartGame() Handler {
	return &startGame{edge{"start-game", domain.PhaseLobby, domain.PhaseChoosing}}
}

func (h *startGame) CanTransition(ctx *Context) bool {
	return h.at(ctx) &&
		isStart(ctx) &&
		len(ctx.Game.ActivePlayers()) > 0 &&
		firstRoundType(ctx.Game) == domain.RoundTypeSimple
}

func (h *startGame) Mutate(ctx *Context) (Mutation, error) {
	g := ctx.Game
	g.StartedAt = timePtr(ctx.Now)
	g.State = domain.GameState{
		QuestionState: domain.QuestionStateChoosing,
		CurrentRound:  intPtr(0),
		IsPaused:      g.State.IsPaused,
	}
	g.State.CurrentTurnPlayerID = g.FirstTurnPlayer()
	return GameStarted{TurnPlayerID: g.State.CurrentTurnPlayerID}, nil
}

func (h *startGame) HandleTimer(*Context, Mutation) TimerResult {
	return noTimer()
}

func (h *startGame) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	started := m.(GameStarted)
	return []broadcast.Intent{
		broadcast.ToGame(broadcast.EventGameStarted, broadcast.GameStartedPayload{
			Phase:        domain.PhaseChoosing,
			CurrentRound: 0,
			TurnPlayerID: started.TurnPlayerID,
		}),
		broadcast.GameData(ctx.Game),
	}
}

// startFinal starts a game whose first round is the final.
type startFinal struct{ edge }

func newStartFinal() Handler {
	return &startFinal{edge{"start-final", domain.PhaseLobby, domain.PhaseFinalThemeElimination}}
}

func (h *startFinal) CanTransition(ctx *Context) bool {
	return h.at(ctx) &&
		isStart(ctx) &&
		firstRoundType(ctx.Game) == domain.RoundTypeFinal &&
		len(ctx.Game.FinalEligible()) > 0
}

func (h *startFinal) Mutate(ctx *Context) (Mutation, error) {
	g := ctx.Game
	g.StartedAt = timePtr(ctx.Now)
	g.State = domain.GameState{IsPaused: g.State.IsPaused}
	return enterFinal(g, 0), nil
}

func (h *startFinal) HandleTimer(ctx *Context, _ Mutation) TimerResult {
	return startTimer(ctx, domain.ThemeEliminationDuration)
}

func (h *startFinal) CollectBroadcasts(ctx *Context, m Mutation, tr TimerResult) []broadcast.Intent {
	return append([]broadcast.Intent{
		broadcast.ToGame(broadcast.EventGameStarted, broadcast.GameStartedPayload{
			Phase:        domain.PhaseFinalThemeElimination,
			CurrentRound: 0,
			TurnPlayerID: ctx.Game.State.CurrentTurnPlayerID,
			Timer:        tr.Timer,
		}),
	}, finalEnteredIntents(ctx, m.(FinalRoundEntered), tr, domain.PhaseLobby)...)
}

// enterFinal switches the game into the final round at roundIndex.
func enterFinal(g *domain.Game, roundIndex int) FinalRoundEntered {
	g.State.CurrentRound = intPtr(roundIndex)
	g.State.ResetQuestion()
	d := g.NewFinalRoundData()
	g.State.FinalRoundData = d
	g.State.QuestionState = domain.QuestionStateThemeElimination
	g.State.CurrentTurnPlayerID = d.CurrentTurnPlayer()
	return FinalRoundEntered{RoundIndex: roundIndex, TurnOrder: d.TurnOrder}
}

func finalEnteredIntents(ctx *Context, m FinalRoundEntered, tr TimerResult, from domain.GamePhase) []broadcast.Intent {
	round := &ctx.Game.Package.Rounds[m.RoundIndex]
	turn := ctx.Game.State.CurrentTurnPlayerID
	return []broadcast.Intent{
		broadcast.ToGameProjected(broadcast.EventNextRound, func(r broadcast.Recipient) any {
			return broadcast.NextRoundPayload{
				RoundIndex:   m.RoundIndex,
				Round:        broadcast.NewRoundView(round, r.Role),
				TurnPlayerID: turn,
			}
		}),
		broadcast.ToGame(broadcast.EventFinalPhaseComplete, broadcast.FinalPhaseCompletePayload{
			Phase:     from,
			NextPhase: domain.PhaseFinalThemeElimination,
			Timer:     tr.Timer,
		}),
	}
}
