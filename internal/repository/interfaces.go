package repository

import (
	"context"
	"errors"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

type PackageRepository interface {
	Create(ctx context.Context, pkg *domain.PackageRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PackageRecord, error)
}

type GameResultRepository interface {
	Create(ctx context.Context, result *domain.GameResult) error
	GetByGameID(ctx context.Context, gameID string) (*domain.GameResult, error)
	ListByUser(ctx context.Context, userID, limit, offset int) ([]*domain.GameResult, error)
}

type Repositories struct {
	Package    PackageRepository
	GameResult GameResultRepository
}
