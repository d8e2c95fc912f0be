package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question ids of DefaultPackage.
const (
	QSimple100    = 100
	QStake200     = 101
	QSecret300    = 102
	QMedia100     = 110
	QNoRisk200    = 111
	QSimple300    = 112
	ThemeHistory  = 10
	ThemeScience  = 11
	ThemeArt      = 20
	ThemeMusic    = 21
	ThemeFilm     = 22
	QFinalArt     = 200
	QFinalMusic   = 210
	QFinalFilm    = 220
	FinalRoundIdx = 1
)

// DefaultPackage returns one regular round covering every question type
// followed by a final round with three themes.
func DefaultPackage() domain.Package {
	return domain.Package{
		ID:    "pkg-default",
		Title: "Test Package",
		Rounds: []domain.Round{
			{
				ID: 1, Order: 0, Name: "Round 1", Type: domain.RoundTypeSimple,
				Themes: []domain.Theme{
					{ID: ThemeHistory, Name: "History", Questions: []domain.Question{
						{ID: QSimple100, Price: 100, Type: domain.QuestionTypeSimple, Text: "Q100", Answer: "A100"},
						{ID: QStake200, Price: 200, Type: domain.QuestionTypeStake, Text: "Q101", Answer: "A101"},
						{ID: QSecret300, Price: 300, Type: domain.QuestionTypeSecret, Text: "Q102", Answer: "A102", TransferType: domain.TransferAny},
					}},
					{ID: ThemeScience, Name: "Science", Questions: []domain.Question{
						{ID: QMedia100, Price: 100, Type: domain.QuestionTypeSimple, Text: "Q110", Answer: "A110", MediaURL: "https://media.example/q110.mp3"},
						{ID: QNoRisk200, Price: 200, Type: domain.QuestionTypeNoRisk, Text: "Q111", Answer: "A111"},
						{ID: QSimple300, Price: 300, Type: domain.QuestionTypeSimple, Text: "Q112", Answer: "A112"},
					}},
				},
			},
			{
				ID: 2, Order: 1, Name: "Final", Type: domain.RoundTypeFinal,
				Themes: []domain.Theme{
					{ID: ThemeArt, Name: "Art", Questions: []domain.Question{{ID: QFinalArt, Text: "F200", Answer: "FA200"}}},
					{ID: ThemeMusic, Name: "Music", Questions: []domain.Question{{ID: QFinalMusic, Text: "F210", Answer: "FA210"}}},
					{ID: ThemeFilm, Name: "Film", Questions: []domain.Question{{ID: QFinalFilm, Text: "F220", Answer: "FA220"}}},
				},
			},
		},
	}
}

// SingleQuestionPackage returns a package whose only round holds one question.
func SingleQuestionPackage(q domain.Question) domain.Package {
	return domain.Package{
		ID:    "pkg-single",
		Title: "Single",
		Rounds: []domain.Round{{
			ID: 1, Name: "Round 1", Type: domain.RoundTypeSimple,
			Themes: []domain.Theme{{ID: ThemeHistory, Name: "History", Questions: []domain.Question{q}}},
		}},
	}
}

// GameBuilder creates in-memory games with a builder pattern
type GameBuilder struct {
	game *domain.Game
}

// NewGameBuilder creates a lobby game over DefaultPackage
func NewGameBuilder() *GameBuilder {
	return &GameBuilder{game: &domain.Game{
		ID:         uuid.NewString(),
		Title:      "Test Game",
		MaxPlayers: 4,
		CreatedBy:  1,
		CreatedAt:  time.Now().UTC(),
		Package:    DefaultPackage(),
	}}
}

func (b *GameBuilder) WithID(id string) *GameBuilder {
	b.game.ID = id
	return b
}

func (b *GameBuilder) WithPackage(pkg domain.Package) *GameBuilder {
	b.game.Package = pkg
	return b
}

func (b *GameBuilder) WithMaxPlayers(n int) *GameBuilder {
	b.game.MaxPlayers = n
	return b
}

func (b *GameBuilder) CreatedAt(t time.Time) *GameBuilder {
	b.game.CreatedAt = t
	return b
}

func (b *GameBuilder) Private() *GameBuilder {
	b.game.IsPrivate = true
	return b
}

// WithShowman adds an in-game showman
func (b *GameBuilder) WithShowman(id int) *GameBuilder {
	b.game.Players = append(b.game.Players, newPlayer(id, domain.RoleShowman, nil, 0))
	return b
}

// WithPlayer adds an in-game contestant in slot with score
func (b *GameBuilder) WithPlayer(id, slot, score int) *GameBuilder {
	s := slot
	b.game.Players = append(b.game.Players, newPlayer(id, domain.RolePlayer, &s, score))
	return b
}

func (b *GameBuilder) WithSpectator(id int) *GameBuilder {
	b.game.Players = append(b.game.Players, newPlayer(id, domain.RoleSpectator, nil, 0))
	return b
}

// Started moves the game into the first round's CHOOSING state
func (b *GameBuilder) Started() *GameBuilder {
	now := time.Now().UTC()
	round := 0
	b.game.StartedAt = &now
	b.game.State.CurrentRound = &round
	b.game.State.QuestionState = domain.QuestionStateChoosing
	b.game.State.CurrentTurnPlayerID = b.game.FirstTurnPlayer()
	return b
}

// InRound sets the current round index
func (b *GameBuilder) InRound(idx int) *GameBuilder {
	b.game.State.CurrentRound = &idx
	return b
}

func (b *GameBuilder) Finished() *GameBuilder {
	now := time.Now().UTC()
	b.game.FinishedAt = &now
	return b
}

// WithState applies arbitrary state edits
func (b *GameBuilder) WithState(fn func(*domain.GameState)) *GameBuilder {
	fn(&b.game.State)
	return b
}

func (b *GameBuilder) Build() *domain.Game {
	return b.game
}

func newPlayer(id int, role domain.PlayerRole, slot *int, score int) *domain.Player {
	return &domain.Player{
		Meta:       domain.PlayerMeta{ID: id, Username: fmt.Sprintf("user%d", id)},
		Role:       role,
		Score:      score,
		GameStatus: domain.PlayerInGame,
		GameSlot:   slot,
		JoinedAt:   time.Now().UTC(),
	}
}

// PackageRecordBuilder stores packages in the database
type PackageRecordBuilder struct {
	pkg       domain.Package
	createdBy int
}

func NewPackageRecordBuilder() *PackageRecordBuilder {
	pkg := DefaultPackage()
	pkg.ID = uuid.NewString()
	return &PackageRecordBuilder{pkg: pkg, createdBy: 1}
}

func (b *PackageRecordBuilder) WithPackage(pkg domain.Package) *PackageRecordBuilder {
	b.pkg = pkg
	return b
}

func (b *PackageRecordBuilder) WithCreator(userID int) *PackageRecordBuilder {
	b.createdBy = userID
	return b
}

// Build creates the package row in the database
func (b *PackageRecordBuilder) Build(t *testing.T, db *gorm.DB) *domain.PackageRecord {
	t.Helper()

	record := b.Record(t)
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create package: %v", err)
	}

	return record
}

// Record returns the row without storing it
func (b *PackageRecordBuilder) Record(t *testing.T) *domain.PackageRecord {
	t.Helper()

	rounds, err := json.Marshal(b.pkg.Rounds)
	if err != nil {
		t.Fatalf("failed to marshal rounds: %v", err)
	}
	id, err := uuid.Parse(b.pkg.ID)
	if err != nil {
		id = uuid.New()
	}
	return &domain.PackageRecord{
		ID:        id,
		Title:     b.pkg.Title,
		Author:    b.pkg.Author,
		Rounds:    datatypes.JSON(rounds),
		CreatedBy: b.createdBy,
		CreatedAt: time.Now(),
	}
}

// GenerateToken signs an access token for userID
func GenerateToken(t *testing.T, secret string, userID int) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}
