package gameplay

import "github.com/dom/quiz-engine/internal/domain"

// Inbound action payloads.

type JoinPayload struct {
	Role      domain.PlayerRole `json:"role"`
	Slot      *int              `json:"slot,omitempty"`
	Username  string            `json:"username"`
	AvatarURL string            `json:"avatar,omitempty"`
}

type PickQuestionPayload struct {
	QuestionID int `json:"questionId"`
}

type AnswerResultPayload struct {
	Correct bool `json:"correct"`
}

type StakeBidPayload struct {
	Type   domain.StakeBidType `json:"type"`
	Amount int                 `json:"amount"`
}

type SecretTransferPayload struct {
	TargetPlayerID int `json:"targetPlayerId"`
}

type ThemeEliminatePayload struct {
	ThemeID int `json:"themeId"`
}

type FinalBidPayload struct {
	Amount int `json:"amount"`
}

type FinalAnswerPayload struct {
	Answer string `json:"answer"`
}

type FinalReviewPayload struct {
	PlayerID int  `json:"playerId"`
	Correct  bool `json:"correct"`
}

type ScoreChangePayload struct {
	PlayerID int `json:"playerId"`
	Score    int `json:"score"`
}

type TurnChangePayload struct {
	PlayerID *int `json:"playerId"`
}

type RestrictPayload struct {
	PlayerID   int  `json:"playerId"`
	Muted      bool `json:"muted"`
	Restricted bool `json:"restricted"`
	Banned     bool `json:"banned"`
}
