package broadcast

import (
	"github.com/dom/quiz-engine/internal/domain"
)

// Event names an outbound message. Payload shapes are fixed per event.
type Event string

const (
	EventGameData                  Event = "GAME_DATA"
	EventGameCreated               Event = "GAME_CREATED"
	EventPlayerJoined              Event = "PLAYER_JOINED"
	EventPlayerLeft                Event = "PLAYER_LEFT"
	EventGameStarted               Event = "GAME_STARTED"
	EventQuestionData              Event = "QUESTION_DATA"
	EventMediaDownloaded           Event = "MEDIA_DOWNLOADED"
	EventAnswerRequest             Event = "ANSWER_REQUEST"
	EventAnswerResult              Event = "ANSWER_RESULT"
	EventPlayerSkipped             Event = "PLAYER_SKIPPED"
	EventAnswerShowStart           Event = "ANSWER_SHOW_START"
	EventQuestionFinish            Event = "QUESTION_FINISH"
	EventNextRound                 Event = "NEXT_ROUND"
	EventStakeQuestionPicked       Event = "STAKE_QUESTION_PICKED"
	EventStakeBidSubmitted         Event = "STAKE_BID_SUBMITTED"
	EventStakeQuestionWinner       Event = "STAKE_QUESTION_WINNER"
	EventSecretQuestionPicked      Event = "SECRET_QUESTION_PICKED"
	EventSecretQuestionTransferred Event = "SECRET_QUESTION_TRANSFERRED"
	EventFinalPhaseComplete        Event = "FINAL_PHASE_COMPLETE"
	EventThemeEliminated           Event = "THEME_ELIMINATED"
	EventFinalBidSubmitted         Event = "FINAL_BID_SUBMITTED"
	EventFinalQuestionData         Event = "FINAL_QUESTION_DATA"
	EventFinalAnswerSubmitted      Event = "FINAL_ANSWER_SUBMITTED"
	EventFinalAnswerReviewed       Event = "FINAL_ANSWER_REVIEWED"
	EventGamePaused                Event = "GAME_PAUSED"
	EventGameUnpaused              Event = "GAME_UNPAUSED"
	EventScoreChanged              Event = "SCORE_CHANGED"
	EventTurnPlayerChanged         Event = "TURN_PLAYER_CHANGED"
	EventPlayerRestricted          Event = "PLAYER_RESTRICTED"
	EventGameFinished              Event = "GAME_FINISHED"
	EventError                     Event = "ERROR"
)

// --- Lobby and membership ---

type GameDataPayload struct {
	Game GameView `json:"game"`
}

type GameCreatedPayload struct {
	Game GameSummary `json:"game"`
}

type PlayerJoinedPayload struct {
	Player *domain.Player `json:"player"`
}

type PlayerLeftPayload struct {
	UserID int `json:"userId"`
}

type GameStartedPayload struct {
	Phase        domain.GamePhase `json:"phase"`
	CurrentRound int              `json:"currentRound"`
	TurnPlayerID *int             `json:"currentTurnPlayerId"`
	Timer        *domain.Timer    `json:"timer,omitempty"`
}

// --- Regular questions ---

type QuestionDataPayload struct {
	ThemeID       int                  `json:"themeId"`
	Question      QuestionView         `json:"question"`
	QuestionState domain.QuestionState `json:"questionState"`
	Timer         *domain.Timer        `json:"timer,omitempty"`
}

type MediaDownloadedPayload struct {
	PlayerID int           `json:"playerId"`
	AllReady bool          `json:"allReady"`
	Timer    *domain.Timer `json:"timer,omitempty"`
}

type AnswerRequestPayload struct {
	PlayerID int           `json:"playerId"`
	Timer    *domain.Timer `json:"timer,omitempty"`
}

type AnswerResultPayload struct {
	PlayerID   int                     `json:"playerId"`
	Result     domain.AnswerResultType `json:"result"`
	ScoreDelta int                     `json:"scoreDelta"`
	Score      int                     `json:"score"`
	Timer      *domain.Timer           `json:"timer,omitempty"`
}

type PlayerSkippedPayload struct {
	PlayerID int `json:"playerId"`
}

type AnswerShowStartPayload struct {
	QuestionID int           `json:"questionId"`
	Answer     string        `json:"answer"`
	AnswerHint string        `json:"answerHint,omitempty"`
	Timer      *domain.Timer `json:"timer,omitempty"`
}

type QuestionFinishPayload struct {
	QuestionID   int    `json:"questionId"`
	Answer       string `json:"answer"`
	TurnPlayerID *int   `json:"currentTurnPlayerId"`
}

type NextRoundPayload struct {
	RoundIndex   int       `json:"roundIndex"`
	Round        RoundView `json:"round"`
	TurnPlayerID *int      `json:"currentTurnPlayerId"`
}

// --- Special questions ---

type StakeQuestionPickedPayload struct {
	PickerPlayerID int                     `json:"pickerPlayerId"`
	QuestionID     int                     `json:"questionId"`
	NominalPrice   int                     `json:"nominalPrice"`
	MaxPrice       *int                    `json:"maxPrice"`
	BiddingOrder   []int                   `json:"biddingOrder"`
	Bids           map[int]domain.StakeBid `json:"bids"`
	CurrentBidder  *int                    `json:"currentBidderId"`
	Timer          *domain.Timer           `json:"timer,omitempty"`
}

type StakeBidSubmittedPayload struct {
	PlayerID   int             `json:"playerId"`
	Bid        domain.StakeBid `json:"bid"`
	AutoPassed []int           `json:"autoPassed,omitempty"`
	NextBidder *int            `json:"nextBidderId"`
	HighestBid *int            `json:"highestBid"`
	Timer      *domain.Timer   `json:"timer,omitempty"`
}

type StakeQuestionWinnerPayload struct {
	WinnerPlayerID int           `json:"winnerPlayerId"`
	FinalBid       int           `json:"finalBid"`
	Question       QuestionView  `json:"question"`
	Timer          *domain.Timer `json:"timer,omitempty"`
}

type SecretQuestionPickedPayload struct {
	PickerPlayerID int                 `json:"pickerPlayerId"`
	QuestionID     int                 `json:"questionId"`
	TransferType   domain.TransferType `json:"transferType"`
	Timer          *domain.Timer       `json:"timer,omitempty"`
}

type SecretQuestionTransferredPayload struct {
	FromPlayerID int           `json:"fromPlayerId"`
	ToPlayerID   int           `json:"toPlayerId"`
	Question     QuestionView  `json:"question"`
	Timer        *domain.Timer `json:"timer,omitempty"`
}

// --- Final round ---

type FinalPhaseCompletePayload struct {
	Phase     domain.GamePhase `json:"phase"`
	NextPhase domain.GamePhase `json:"nextPhase"`
	Timer     *domain.Timer    `json:"timer,omitempty"`
}

type ThemeEliminatedPayload struct {
	PlayerID     int           `json:"playerId"`
	ThemeID      int           `json:"themeId"`
	TurnPlayerID *int          `json:"nextTurnPlayerId"`
	Timer        *domain.Timer `json:"timer,omitempty"`
}

type FinalBidSubmittedPayload struct {
	PlayerID int  `json:"playerId"`
	Amount   *int `json:"amount,omitempty"`
}

type FinalQuestionDataPayload struct {
	ThemeID  int           `json:"themeId"`
	Question QuestionView  `json:"question"`
	Timer    *domain.Timer `json:"timer,omitempty"`
}

type FinalAnswerSubmittedPayload struct {
	PlayerID int    `json:"playerId"`
	Answer   string `json:"answer,omitempty"`
}

type FinalAnswerReviewedPayload struct {
	PlayerID   int  `json:"playerId"`
	IsCorrect  bool `json:"isCorrect"`
	ScoreDelta int  `json:"scoreDelta"`
	Score      int  `json:"score"`
}

// --- Moderation ---

type GamePausedPayload struct {
	Timer *domain.Timer `json:"timer,omitempty"`
}

type ScoreChangedPayload struct {
	PlayerID int `json:"playerId"`
	Score    int `json:"score"`
}

type TurnPlayerChangedPayload struct {
	PlayerID *int `json:"playerId"`
}

type PlayerRestrictedPayload struct {
	PlayerID     int  `json:"playerId"`
	IsMuted      bool `json:"isMuted"`
	IsRestricted bool `json:"isRestricted"`
	IsBanned     bool `json:"isBanned"`
}

type GameFinishedPayload struct {
	WinnerID *int        `json:"winnerId"`
	Scores   map[int]int `json:"scores"`
}

type ErrorPayload struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
}
