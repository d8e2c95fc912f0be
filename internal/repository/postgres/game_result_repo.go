package postgres

import (
	"context"
	"fmt"

	"github.com/dom/quiz-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gameResultRepository struct {
	db *gorm.DB
}

func NewGameResultRepository(db *gorm.DB) *gameResultRepository {
	return &gameResultRepository{db: db}
}

// Create stores a result. Archiving the same game twice keeps the first row.
func (r *gameResultRepository) Create(ctx context.Context, result *domain.GameResult) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "game_id"}}, DoNothing: true}).
		Create(result).Error
}

func (r *gameResultRepository) GetByGameID(ctx context.Context, gameID string) (*domain.GameResult, error) {
	var result domain.GameResult
	if err := r.db.WithContext(ctx).First(&result, "game_id = ?", gameID).Error; err != nil {
		return nil, notFound(err)
	}
	return &result, nil
}

// ListByUser returns the games userID played in, most recent first.
func (r *gameResultRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]*domain.GameResult, error) {
	var results []*domain.GameResult
	err := r.db.WithContext(ctx).
		Where("player_ids @> ?::jsonb", fmt.Sprintf("[%d]", userID)).
		Order("finished_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
