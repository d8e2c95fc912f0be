package domain

type RoundType string

const (
	RoundTypeSimple RoundType = "SIMPLE"
	RoundTypeFinal  RoundType = "FINAL"
)

type QuestionType string

const (
	QuestionTypeSimple QuestionType = "SIMPLE"
	QuestionTypeStake  QuestionType = "STAKE"
	QuestionTypeSecret QuestionType = "SECRET"
	QuestionTypeNoRisk QuestionType = "NO_RISK"
)

// AllowsRebuzz reports whether other players may answer after a wrong answer.
func (t QuestionType) AllowsRebuzz() bool {
	return t == QuestionTypeSimple || t == ""
}

type TransferType string

const (
	TransferAny           TransferType = "ANY"
	TransferExceptCurrent TransferType = "EXCEPT_CURRENT"
)

type Package struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author,omitempty"`
	Rounds []Round `json:"rounds"`
}

type Round struct {
	ID     int       `json:"id"`
	Order  int       `json:"order"`
	Name   string    `json:"name"`
	Type   RoundType `json:"type"`
	Themes []Theme   `json:"themes"`
}

type Theme struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

type Question struct {
	ID           int          `json:"id"`
	Price        int          `json:"price"`
	Type         QuestionType `json:"type"`
	Text         string       `json:"text"`
	Answer       string       `json:"answer"`
	AnswerHint   string       `json:"answerHint,omitempty"`
	MediaURL     string       `json:"mediaUrl,omitempty"`
	MaxPrice     *int         `json:"maxPrice,omitempty"`
	TransferType TransferType `json:"transferType,omitempty"`
	IsPlayed     bool         `json:"isPlayed"`
}

func (q *Question) HasMedia() bool {
	return q.MediaURL != ""
}

// IsFinished reports whether every question of a regular round has been played.
// A final round is finished once its single question has been asked.
func (r *Round) IsFinished() bool {
	for _, theme := range r.Themes {
		for _, q := range theme.Questions {
			if !q.IsPlayed {
				return false
			}
		}
	}
	return true
}

// FindQuestion looks a question up by id inside the round.
func (r *Round) FindQuestion(questionID int) (*Question, *Theme) {
	for ti := range r.Themes {
		theme := &r.Themes[ti]
		for qi := range theme.Questions {
			if theme.Questions[qi].ID == questionID {
				return &theme.Questions[qi], theme
			}
		}
	}
	return nil, nil
}

func (r *Round) FindTheme(themeID int) *Theme {
	for i := range r.Themes {
		if r.Themes[i].ID == themeID {
			return &r.Themes[i]
		}
	}
	return nil
}

// PackageStore answers question and theme lookups for a game. The package is
// embedded in the game aggregate, so lookups never leave the process.
type PackageStore struct{}

func (PackageStore) FindQuestion(game *Game, questionID int) (*Question, *Theme) {
	round := game.CurrentRound()
	if round == nil {
		return nil, nil
	}
	return round.FindQuestion(questionID)
}

func (PackageStore) FindTheme(game *Game, themeID int) *Theme {
	round := game.CurrentRound()
	if round == nil {
		return nil
	}
	return round.FindTheme(themeID)
}
