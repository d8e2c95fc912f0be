package postgres

import (
	"context"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type packageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *packageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) Create(ctx context.Context, pkg *domain.PackageRecord) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *packageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PackageRecord, error) {
	var pkg domain.PackageRecord
	if err := r.db.WithContext(ctx).First(&pkg, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &pkg, nil
}
