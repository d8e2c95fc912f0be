package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var ErrInvalidPackage = errors.New("invalid package")

type PackageService struct {
	packages repository.PackageRepository
}

func NewPackageService(packages repository.PackageRepository) *PackageService {
	return &PackageService{packages: packages}
}

type CreatePackageInput struct {
	Title     string
	Author    string
	Rounds    []domain.Round
	CreatedBy int
}

func (s *PackageService) CreatePackage(ctx context.Context, input CreatePackageInput) (*domain.PackageRecord, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidPackage)
	}
	if err := validateRounds(input.Rounds); err != nil {
		return nil, err
	}

	rounds, err := json.Marshal(input.Rounds)
	if err != nil {
		return nil, err
	}
	record := &domain.PackageRecord{
		ID:        uuid.New(),
		Title:     strings.TrimSpace(input.Title),
		Author:    input.Author,
		Rounds:    datatypes.JSON(rounds),
		CreatedBy: input.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.packages.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *PackageService) GetPackage(ctx context.Context, id uuid.UUID) (*domain.PackageRecord, error) {
	record, err := s.packages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return record, nil
}

// validateRounds checks the shape the engine relies on: every round has
// themes, question and theme ids are unique across the package, and only the
// last round may be final.
func validateRounds(rounds []domain.Round) error {
	if len(rounds) == 0 {
		return fmt.Errorf("%w: at least one round is required", ErrInvalidPackage)
	}
	themeIDs := map[int]bool{}
	questionIDs := map[int]bool{}
	for i, r := range rounds {
		if len(r.Themes) == 0 {
			return fmt.Errorf("%w: round %d has no themes", ErrInvalidPackage, i)
		}
		if r.Type == domain.RoundTypeFinal && i != len(rounds)-1 {
			return fmt.Errorf("%w: only the last round may be final", ErrInvalidPackage)
		}
		for _, th := range r.Themes {
			if themeIDs[th.ID] {
				return fmt.Errorf("%w: duplicate theme id %d", ErrInvalidPackage, th.ID)
			}
			themeIDs[th.ID] = true
			if len(th.Questions) == 0 {
				return fmt.Errorf("%w: theme %d has no questions", ErrInvalidPackage, th.ID)
			}
			for _, q := range th.Questions {
				if questionIDs[q.ID] {
					return fmt.Errorf("%w: duplicate question id %d", ErrInvalidPackage, q.ID)
				}
				questionIDs[q.ID] = true
			}
		}
	}
	return nil
}
