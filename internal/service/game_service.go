package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/repository"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxPlayers = 6
	MaxPlayersLimit   = 8
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrPackageNotFound = errors.New("package not found")
	ErrInvalidGame     = errors.New("invalid game settings")
	ErrEmptyPackage    = errors.New("package has no rounds")
)

// GameStore is the shared-store side of game persistence.
type GameStore interface {
	Get(ctx context.Context, id string) (*domain.Game, error)
	Save(ctx context.Context, game *domain.Game) error
	ListPublic(ctx context.Context) ([]*domain.Game, error)
}

type Emitter interface {
	Emit(ctx context.Context, game *domain.Game, intents []broadcast.Intent) error
}

type GameService struct {
	packages repository.PackageRepository
	results  repository.GameResultRepository
	games    GameStore
	emitter  Emitter
	now      func() time.Time
}

func NewGameService(packages repository.PackageRepository, results repository.GameResultRepository, games GameStore, emitter Emitter) *GameService {
	return &GameService{
		packages: packages,
		results:  results,
		games:    games,
		emitter:  emitter,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateGameInput struct {
	PackageID  uuid.UUID
	Title      string
	MaxPlayers int
	IsPrivate  bool
	CreatedBy  int
}

// CreateGame builds a lobby game over a stored package. Public games are
// announced to every connection.
func (s *GameService) CreateGame(ctx context.Context, input CreateGameInput) (*domain.Game, error) {
	if input.MaxPlayers == 0 {
		input.MaxPlayers = DefaultMaxPlayers
	}
	if input.MaxPlayers < 1 || input.MaxPlayers > MaxPlayersLimit {
		return nil, fmt.Errorf("%w: max players must be between 1 and %d", ErrInvalidGame, MaxPlayersLimit)
	}

	record, err := s.packages.GetByID(ctx, input.PackageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	pkg, err := record.ToPackage()
	if err != nil {
		return nil, err
	}
	if len(pkg.Rounds) == 0 {
		return nil, ErrEmptyPackage
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = pkg.Title
	}

	game := &domain.Game{
		ID:         uuid.NewString(),
		Title:      title,
		IsPrivate:  input.IsPrivate,
		MaxPlayers: input.MaxPlayers,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  s.now(),
		Package:    pkg,
		Players:    []*domain.Player{},
	}

	if err := s.games.Save(ctx, game); err != nil {
		return nil, err
	}

	if !game.IsPrivate {
		intent := broadcast.ToAll(broadcast.EventGameCreated, broadcast.GameCreatedPayload{Game: broadcast.NewGameSummary(game)})
		if err := s.emitter.Emit(ctx, game, []broadcast.Intent{intent}); err != nil {
			logger.Warn("Failed to announce created game", zap.String("gameId", game.ID), zap.Error(err))
		}
	}

	logger.Info("Game created",
		zap.String("gameId", game.ID),
		zap.String("packageId", pkg.ID),
		zap.Int("createdBy", input.CreatedBy),
	)
	return game, nil
}

func (s *GameService) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	game, err := s.games.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

func (s *GameService) ListPublicGames(ctx context.Context) ([]broadcast.GameSummary, error) {
	games, err := s.games.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]broadcast.GameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, broadcast.NewGameSummary(g))
	}
	return summaries, nil
}

// Archive stores the final scores of a finished game.
func (s *GameService) Archive(ctx context.Context, game *domain.Game) error {
	result, err := domain.NewGameResult(game)
	if err != nil {
		return fmt.Errorf("snapshot game %s: %w", game.ID, err)
	}
	return s.results.Create(ctx, result)
}

func (s *GameService) History(ctx context.Context, userID, limit, offset int) ([]*domain.GameResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.results.ListByUser(ctx, userID, limit, offset)
}
