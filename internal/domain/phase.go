package domain

// GamePhase is derived from the game state and never stored.
type GamePhase string

const (
	PhaseLobby                  GamePhase = "LOBBY"
	PhaseChoosing               GamePhase = "CHOOSING"
	PhaseShowing                GamePhase = "SHOWING"
	PhaseAnswering              GamePhase = "ANSWERING"
	PhaseShowingAnswer          GamePhase = "SHOWING_ANSWER"
	PhaseSecretQuestionTransfer GamePhase = "SECRET_QUESTION_TRANSFER"
	PhaseStakeBidding           GamePhase = "STAKE_BIDDING"
	PhaseFinalThemeElimination  GamePhase = "FINAL_THEME_ELIMINATION"
	PhaseFinalBidding           GamePhase = "FINAL_BIDDING"
	PhaseFinalAnswering         GamePhase = "FINAL_ANSWERING"
	PhaseFinalReviewing         GamePhase = "FINAL_REVIEWING"
	PhaseGameFinished           GamePhase = "GAME_FINISHED"
)

// AllPhases lists every phase in progression order.
var AllPhases = []GamePhase{
	PhaseLobby,
	PhaseChoosing,
	PhaseShowing,
	PhaseAnswering,
	PhaseShowingAnswer,
	PhaseSecretQuestionTransfer,
	PhaseStakeBidding,
	PhaseFinalThemeElimination,
	PhaseFinalBidding,
	PhaseFinalAnswering,
	PhaseFinalReviewing,
	PhaseGameFinished,
}

func (p GamePhase) String() string {
	return string(p)
}

// IsFinal reports whether p belongs to the final round.
func (p GamePhase) IsFinal() bool {
	switch p {
	case PhaseFinalThemeElimination, PhaseFinalBidding, PhaseFinalAnswering, PhaseFinalReviewing:
		return true
	}
	return false
}

// GetGamePhase derives the phase from the lifecycle timestamps and the game
// state. Special-mechanic data wins over the generic question state, and the
// final-round question states only map to FINAL_* inside a FINAL round.
func GetGamePhase(g *Game) GamePhase {
	if g.FinishedAt != nil {
		return PhaseGameFinished
	}
	if g.StartedAt == nil {
		return PhaseLobby
	}

	s := &g.State
	if s.StakeQuestionData != nil && s.QuestionState == QuestionStateBidding {
		return PhaseStakeBidding
	}
	if s.SecretQuestionData != nil && s.QuestionState == QuestionStateSecretTransfer {
		return PhaseSecretQuestionTransfer
	}

	if g.IsFinalRound() {
		switch s.QuestionState {
		case QuestionStateThemeElimination:
			return PhaseFinalThemeElimination
		case QuestionStateBidding:
			return PhaseFinalBidding
		case QuestionStateAnswering:
			return PhaseFinalAnswering
		case QuestionStateReviewing:
			return PhaseFinalReviewing
		}
	}

	switch s.QuestionState {
	case QuestionStateMediaDownloading, QuestionStateShowing:
		return PhaseShowing
	case QuestionStateAnswering:
		return PhaseAnswering
	case QuestionStateShowingAnswer:
		return PhaseShowingAnswer
	default:
		return PhaseChoosing
	}
}
