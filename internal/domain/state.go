package domain

import (
	"errors"
	"fmt"
	"slices"
)

type QuestionState string

const (
	QuestionStateNone             QuestionState = ""
	QuestionStateChoosing         QuestionState = "CHOOSING"
	QuestionStateMediaDownloading QuestionState = "MEDIA_DOWNLOADING"
	QuestionStateShowing          QuestionState = "SHOWING"
	QuestionStateAnswering        QuestionState = "ANSWERING"
	QuestionStateShowingAnswer    QuestionState = "SHOWING_ANSWER"
	QuestionStateSecretTransfer   QuestionState = "SECRET_TRANSFER"
	QuestionStateBidding          QuestionState = "BIDDING"
	QuestionStateThemeElimination QuestionState = "THEME_ELIMINATION"
	QuestionStateReviewing        QuestionState = "REVIEWING"
)

type AnswerResultType string

const (
	AnswerCorrect AnswerResultType = "CORRECT"
	AnswerWrong   AnswerResultType = "WRONG"
	AnswerSkip    AnswerResultType = "SKIP"
)

type AnswerRecord struct {
	PlayerID   int              `json:"playerId"`
	Result     AnswerResultType `json:"result"`
	ScoreDelta int              `json:"scoreDelta"`
}

// GameState is the mutable progression embedded in Game.
type GameState struct {
	QuestionState       QuestionState       `json:"questionState,omitempty"`
	CurrentRound        *int                `json:"currentRound"`
	CurrentQuestion     *int                `json:"currentQuestion"`
	AnsweringPlayer     *int                `json:"answeringPlayer"`
	AnsweredPlayers     []AnswerRecord      `json:"answeredPlayers"`
	SkippedPlayers      []int               `json:"skippedPlayers"`
	ReadyPlayers        []int               `json:"readyPlayers"`
	Timer               *Timer              `json:"timer"`
	IsPaused            bool                `json:"isPaused"`
	CurrentTurnPlayerID *int                `json:"currentTurnPlayerId"`
	SecretQuestionData  *SecretQuestionData `json:"secretQuestionData"`
	StakeQuestionData   *StakeQuestionData  `json:"stakeQuestionData"`
	FinalRoundData      *FinalRoundData     `json:"finalRoundData"`
}

// HasAnswered reports whether playerID already answered the current question.
func (s *GameState) HasAnswered(playerID int) bool {
	for _, a := range s.AnsweredPlayers {
		if a.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (s *GameState) HasSkipped(playerID int) bool {
	return slices.Contains(s.SkippedPlayers, playerID)
}

func (s *GameState) IsReady(playerID int) bool {
	return slices.Contains(s.ReadyPlayers, playerID)
}

// ResetQuestion clears per-question bookkeeping.
func (s *GameState) ResetQuestion() {
	s.CurrentQuestion = nil
	s.AnsweringPlayer = nil
	s.AnsweredPlayers = nil
	s.SkippedPlayers = nil
	s.ReadyPlayers = nil
	s.SecretQuestionData = nil
	s.StakeQuestionData = nil
}

var ErrSpecialDataConflict = errors.New("more than one special-mechanic payload is set")

// Validate checks that the special-mechanic payload agrees with the question
// state. finalRound tells whether the current round is a FINAL round.
func (s *GameState) Validate(finalRound bool) error {
	set := 0
	if s.SecretQuestionData != nil {
		set++
	}
	if s.StakeQuestionData != nil {
		set++
	}
	if s.FinalRoundData != nil {
		set++
	}
	if set > 1 {
		return ErrSpecialDataConflict
	}

	switch {
	case s.SecretQuestionData != nil:
		if !oneOf(s.QuestionState, QuestionStateSecretTransfer, QuestionStateAnswering, QuestionStateShowingAnswer) {
			return fmt.Errorf("secret question data in state %q", s.QuestionState)
		}
	case s.StakeQuestionData != nil:
		if finalRound || !oneOf(s.QuestionState, QuestionStateBidding, QuestionStateAnswering, QuestionStateShowingAnswer) {
			return fmt.Errorf("stake question data in state %q", s.QuestionState)
		}
	case s.FinalRoundData != nil:
		if !finalRound || !oneOf(s.QuestionState, QuestionStateThemeElimination, QuestionStateBidding, QuestionStateAnswering, QuestionStateReviewing) {
			return fmt.Errorf("final round data in state %q", s.QuestionState)
		}
	default:
		if oneOf(s.QuestionState, QuestionStateSecretTransfer, QuestionStateThemeElimination, QuestionStateReviewing) {
			return fmt.Errorf("state %q requires special-mechanic data", s.QuestionState)
		}
		if s.QuestionState == QuestionStateBidding {
			return fmt.Errorf("bidding without stake or final data")
		}
	}
	return nil
}

func oneOf(s QuestionState, states ...QuestionState) bool {
	return slices.Contains(states, s)
}

// SecretQuestionData is attached while a secret question changes hands.
type SecretQuestionData struct {
	PickerPlayerID int          `json:"pickerPlayerId"`
	QuestionID     int          `json:"questionId"`
	TransferType   TransferType `json:"transferType"`
	TargetPlayerID *int         `json:"targetPlayerId"`
}

type StakeBidType string

const (
	StakeBidNormal StakeBidType = "NORMAL"
	StakeBidPass   StakeBidType = "PASS"
	StakeBidAllIn  StakeBidType = "ALL_IN"
)

type StakeBid struct {
	Amount int          `json:"amount"`
	Type   StakeBidType `json:"type"`
}

// StakeQuestionData is attached from the stake pick until the question ends.
type StakeQuestionData struct {
	PickerPlayerID     int              `json:"pickerPlayerId"`
	QuestionID         int              `json:"questionId"`
	NominalPrice       int              `json:"nominalPrice"`
	MaxPrice           *int             `json:"maxPrice"`
	BiddingOrder       []int            `json:"biddingOrder"`
	CurrentBidderIndex int              `json:"currentBidderIndex"`
	Bids               map[int]StakeBid `json:"bids"`
	PassedPlayers      []int            `json:"passedPlayers"`
	HighestBid         *int             `json:"highestBid"`
	LeaderID           *int             `json:"leaderId"`
	WinnerPlayerID     *int             `json:"winnerPlayerId"`
	IsPhaseComplete    bool             `json:"isPhaseComplete"`
}

func (d *StakeQuestionData) HasPassed(playerID int) bool {
	return slices.Contains(d.PassedPlayers, playerID)
}

// CurrentBidder returns the player whose turn it is, or nil once complete.
func (d *StakeQuestionData) CurrentBidder() *int {
	if d.IsPhaseComplete || len(d.BiddingOrder) == 0 {
		return nil
	}
	id := d.BiddingOrder[d.CurrentBidderIndex%len(d.BiddingOrder)]
	return &id
}

type FinalAnswer struct {
	PlayerID   int    `json:"playerId"`
	Text       string `json:"text"`
	IsAutoLoss bool   `json:"isAutoLoss"`
	Reviewed   bool   `json:"reviewed"`
	IsCorrect  *bool  `json:"isCorrect"`
	ScoreDelta int    `json:"scoreDelta"`
}

// FinalRoundData is attached for the whole final round.
type FinalRoundData struct {
	TurnOrder        []int         `json:"turnOrder"`
	CurrentTurnIndex int           `json:"currentTurnIndex"`
	EliminatedThemes []int         `json:"eliminatedThemes"`
	Bids             map[int]int   `json:"bids"`
	Answers          []FinalAnswer `json:"answers"`
	QuestionID       *int          `json:"questionId"`
}

func (d *FinalRoundData) IsEliminated(themeID int) bool {
	return slices.Contains(d.EliminatedThemes, themeID)
}

func (d *FinalRoundData) IsParticipant(playerID int) bool {
	return slices.Contains(d.TurnOrder, playerID)
}

func (d *FinalRoundData) CurrentTurnPlayer() *int {
	if len(d.TurnOrder) == 0 {
		return nil
	}
	id := d.TurnOrder[d.CurrentTurnIndex%len(d.TurnOrder)]
	return &id
}

func (d *FinalRoundData) FindAnswer(playerID int) *FinalAnswer {
	for i := range d.Answers {
		if d.Answers[i].PlayerID == playerID {
			return &d.Answers[i]
		}
	}
	return nil
}

// AllReviewed reports whether every filed answer has a verdict.
func (d *FinalRoundData) AllReviewed() bool {
	for _, a := range d.Answers {
		if !a.Reviewed {
			return false
		}
	}
	return true
}
