package transition

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
)

// Mutation is the edge-specific record of what Mutate changed. Each edge has
// its own variant carrying what its broadcasts need.
type Mutation interface {
	mutation()
}

type GameStarted struct {
	TurnPlayerID *int
}

type FinalRoundEntered struct {
	Closed     *domain.Question
	RoundIndex int
	TurnOrder  []int
}

type QuestionPicked struct {
	Theme        *domain.Theme
	Question     *domain.Question
	MediaPending bool
}

type StakePicked struct {
	Question *domain.Question
	Data     *domain.StakeQuestionData
}

type SecretPicked struct {
	Question *domain.Question
	Data     *domain.SecretQuestionData
}

type MediaReady struct {
	QuestionID int
}

type AnswerRequested struct {
	PlayerID int
}

type AnswerRecorded struct {
	Question *domain.Question
	PlayerID int
	Result   domain.AnswerResultType
	Delta    int
	Score    int
	Reveal   bool
}

type AnswerRevealed struct {
	Question *domain.Question
	Forced   bool
}

type StakeWon struct {
	Question *domain.Question
	WinnerID int
	Bid      int
}

type SecretTransferred struct {
	Question *domain.Question
	FromID   int
	ToID     int
}

type QuestionClosed struct {
	Question     *domain.Question
	TurnPlayerID *int
}

type RoundAdvanced struct {
	Closed       *domain.Question
	RoundIndex   int
	Round        *domain.Round
	TurnPlayerID *int
}

type FinalThemeChosen struct {
	Theme    *domain.Theme
	Question *domain.Question
}

type FinalBidsClosed struct {
	Theme    *domain.Theme
	Question *domain.Question
	AutoBids map[int]int
}

type FinalAnswersClosed struct {
	AutoLoss []domain.FinalAnswer
}

type GameFinished struct {
	Closed   *domain.Question
	WinnerID *int
	Scores   map[int]int
}

func (GameStarted) mutation()        {}
func (FinalRoundEntered) mutation()  {}
func (QuestionPicked) mutation()     {}
func (StakePicked) mutation()        {}
func (SecretPicked) mutation()       {}
func (MediaReady) mutation()         {}
func (AnswerRequested) mutation()    {}
func (AnswerRecorded) mutation()     {}
func (AnswerRevealed) mutation()     {}
func (StakeWon) mutation()           {}
func (SecretTransferred) mutation()  {}
func (QuestionClosed) mutation()     {}
func (RoundAdvanced) mutation()      {}
func (FinalThemeChosen) mutation()   {}
func (FinalBidsClosed) mutation()    {}
func (FinalAnswersClosed) mutation() {}
func (GameFinished) mutation()       {}

type TimerOp string

const (
	TimerSet         TimerOp = "SET"
	TimerDelete      TimerOp = "DELETE"
	TimerSave        TimerOp = "SAVE"
	TimerDeleteSaved TimerOp = "DELETE_SAVED"
)

// TimerMutation is a declared change to the timer store.
type TimerMutation struct {
	Op     TimerOp
	Suffix string
	Timer  *domain.Timer
}

// TimerResult is the destination phase's countdown and the store changes
// that produce it.
type TimerResult struct {
	Timer     *domain.Timer
	Mutations []TimerMutation
}

// Step records one fired edge of a chain.
type Step struct {
	Handler  string
	From     domain.GamePhase
	To       domain.GamePhase
	Mutation Mutation
}

// Result is the outcome of Transition or Run. For a chain, From is the first
// edge's source, To the last edge's destination, and the lists are
// concatenated in firing order.
type Result struct {
	Success        bool
	From           domain.GamePhase
	To             domain.GamePhase
	Game           *domain.Game
	Mutation       Mutation
	Broadcasts     []broadcast.Intent
	Timer          *domain.Timer
	TimerMutations []TimerMutation
	Steps          []Step
	Finished       bool
}
