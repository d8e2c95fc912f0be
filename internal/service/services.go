package service

import (
	"github.com/dom/quiz-engine/internal/config"
	"github.com/dom/quiz-engine/internal/repository"
)

type Services struct {
	Games    *GameService
	Packages *PackageService
	Tokens   *TokenService
}

func NewServices(repos *repository.Repositories, games GameStore, emitter Emitter, cfg *config.Config) *Services {
	return &Services{
		Games:    NewGameService(repos.Package, repos.GameResult, games, emitter),
		Packages: NewPackageService(repos.Package),
		Tokens:   NewTokenService(cfg),
	}
}
