package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dom/quiz-engine/internal/api/middleware"
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

type CreateGameRequest struct {
	PackageID  string `json:"packageId"`
	Title      string `json:"title"`
	MaxPlayers int    `json:"maxPlayers"`
	IsPrivate  bool   `json:"isPrivate"`
}

type CreateGameResponse struct {
	Game         broadcast.GameSummary `json:"game"`
	WebsocketURL string                `json:"websocketUrl"`
}

type GameResultResponse struct {
	GameID     string      `json:"gameId"`
	Title      string      `json:"title"`
	WinnerID   *int        `json:"winnerId"`
	Scores     map[int]int `json:"scores"`
	FinishedAt string      `json:"finishedAt"`
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		http.Error(w, "Invalid package id", http.StatusBadRequest)
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), service.CreateGameInput{
		PackageID:  packageID,
		Title:      req.Title,
		MaxPlayers: req.MaxPlayers,
		IsPrivate:  req.IsPrivate,
		CreatedBy:  userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPackageNotFound):
			http.Error(w, "Package not found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidGame), errors.Is(err, service.ErrEmptyPackage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			logger.Error("Create game failed", zap.Int("userId", userID), zap.Error(err))
			http.Error(w, "Failed to create game", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, CreateGameResponse{
		Game:         broadcast.NewGameSummary(game),
		WebsocketURL: "/api/v1/ws",
	})
}

// Get returns the game as the caller would see it after joining.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	game, err := h.gameService.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	role := domain.RoleSpectator
	if p := game.FindPlayer(userID); p != nil {
		role = p.Role
	}
	writeJSON(w, http.StatusOK, broadcast.NewGameView(game, role, userID))
}

func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.ListPublicGames(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// History lists the caller's finished games.
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	results, err := h.gameService.History(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]GameResultResponse, 0, len(results))
	for _, res := range results {
		scores, err := res.ScoreMap()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		resp = append(resp, GameResultResponse{
			GameID:     res.GameID,
			Title:      res.Title,
			WinnerID:   res.WinnerID,
			Scores:     scores,
			FinishedAt: res.FinishedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
