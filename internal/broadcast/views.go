package broadcast

import (
	"time"

	"github.com/dom/quiz-engine/internal/domain"
)

// QuestionView is a question as one recipient may see it. Answer is filled
// only for the showman.
type QuestionView struct {
	ID         int                 `json:"id"`
	Price      int                 `json:"price"`
	Type       domain.QuestionType `json:"type"`
	Text       string              `json:"text"`
	MediaURL   string              `json:"mediaUrl,omitempty"`
	Answer     string              `json:"answer,omitempty"`
	AnswerHint string              `json:"answerHint,omitempty"`
}

func NewQuestionView(q *domain.Question, role domain.PlayerRole) QuestionView {
	v := QuestionView{
		ID:       q.ID,
		Price:    q.Price,
		Type:     q.Type,
		Text:     q.Text,
		MediaURL: q.MediaURL,
	}
	if role == domain.RoleShowman {
		v.Answer = q.Answer
		v.AnswerHint = q.AnswerHint
	}
	return v
}

// QuestionSlot is a board cell: no text, no answer.
type QuestionSlot struct {
	ID       int                 `json:"id"`
	Price    int                 `json:"price"`
	Type     domain.QuestionType `json:"type,omitempty"`
	IsPlayed bool                `json:"isPlayed"`
}

type ThemeView struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Questions []QuestionSlot `json:"questions"`
}

type RoundView struct {
	ID     int              `json:"id"`
	Name   string           `json:"name"`
	Type   domain.RoundType `json:"type"`
	Themes []ThemeView      `json:"themes"`
}

// NewRoundView builds the board. Only the showman sees special question types
// before they are picked.
func NewRoundView(r *domain.Round, role domain.PlayerRole) RoundView {
	v := RoundView{ID: r.ID, Name: r.Name, Type: r.Type, Themes: make([]ThemeView, 0, len(r.Themes))}
	for _, t := range r.Themes {
		tv := ThemeView{ID: t.ID, Name: t.Name, Questions: make([]QuestionSlot, 0, len(t.Questions))}
		for _, q := range t.Questions {
			slot := QuestionSlot{ID: q.ID, Price: q.Price, IsPlayed: q.IsPlayed}
			if role == domain.RoleShowman {
				slot.Type = q.Type
			}
			tv.Questions = append(tv.Questions, slot)
		}
		v.Themes = append(v.Themes, tv)
	}
	return v
}

// GameView is the full game as one recipient may see it.
type GameView struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	IsPrivate    bool              `json:"isPrivate"`
	MaxPlayers   int               `json:"maxPlayers"`
	CreatedAt    time.Time         `json:"createdAt"`
	StartedAt    *time.Time        `json:"startedAt"`
	FinishedAt   *time.Time        `json:"finishedAt"`
	PackageTitle string            `json:"packageTitle"`
	Phase        domain.GamePhase  `json:"phase"`
	Role         domain.PlayerRole `json:"role"`
	Players      []*domain.Player  `json:"players"`
	State        domain.GameState  `json:"gameState"`
	Round        *RoundView        `json:"round,omitempty"`
	Question     *QuestionView     `json:"question,omitempty"`
}

// NewGameView projects g for a recipient with role. Final bids and answers of
// other players are hidden from everyone but the showman.
func NewGameView(g *domain.Game, role domain.PlayerRole, userID int) GameView {
	v := GameView{
		ID:           g.ID,
		Title:        g.Title,
		IsPrivate:    g.IsPrivate,
		MaxPlayers:   g.MaxPlayers,
		CreatedAt:    g.CreatedAt,
		StartedAt:    g.StartedAt,
		FinishedAt:   g.FinishedAt,
		PackageTitle: g.Package.Title,
		Phase:        domain.GetGamePhase(g),
		Players:      g.Players,
		State:        g.State,
		Role:         role,
	}
	if r := g.CurrentRound(); r != nil {
		rv := NewRoundView(r, role)
		v.Round = &rv
	}
	if q, _ := g.CurrentQuestion(); q != nil && v.Phase != domain.PhaseChoosing {
		qv := NewQuestionView(q, role)
		v.Question = &qv
	}
	if fd := g.State.FinalRoundData; fd != nil && role != domain.RoleShowman {
		redacted := *fd
		redacted.Bids = map[int]int{}
		if amount, ok := fd.Bids[userID]; ok {
			redacted.Bids[userID] = amount
		}
		redacted.Answers = make([]domain.FinalAnswer, 0, len(fd.Answers))
		for _, a := range fd.Answers {
			if !a.Reviewed && a.PlayerID != userID {
				a.Text = ""
			}
			redacted.Answers = append(redacted.Answers, a)
		}
		v.State.FinalRoundData = &redacted
	}
	return v
}

// GameSummary is the public lobby listing entry.
type GameSummary struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	IsPrivate    bool             `json:"isPrivate"`
	MaxPlayers   int              `json:"maxPlayers"`
	PlayerCount  int              `json:"playerCount"`
	PackageTitle string           `json:"packageTitle"`
	Phase        domain.GamePhase `json:"phase"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func NewGameSummary(g *domain.Game) GameSummary {
	return GameSummary{
		ID:           g.ID,
		Title:        g.Title,
		IsPrivate:    g.IsPrivate,
		MaxPlayers:   g.MaxPlayers,
		PlayerCount:  len(g.ActivePlayers()),
		PackageTitle: g.Package.Title,
		Phase:        domain.GetGamePhase(g),
		CreatedAt:    g.CreatedAt,
	}
}
