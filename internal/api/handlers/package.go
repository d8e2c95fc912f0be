package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/quiz-engine/internal/api/middleware"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type PackageHandler struct {
	packageService *service.PackageService
}

func NewPackageHandler(packageService *service.PackageService) *PackageHandler {
	return &PackageHandler{packageService: packageService}
}

type CreatePackageRequest struct {
	Title  string         `json:"title"`
	Author string         `json:"author"`
	Rounds []domain.Round `json:"rounds"`
}

type PackageResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Rounds    int    `json:"rounds"`
	CreatedBy int    `json:"createdBy"`
}

func (h *PackageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreatePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.packageService.CreatePackage(r.Context(), service.CreatePackageInput{
		Title:     req.Title,
		Author:    req.Author,
		Rounds:    req.Rounds,
		CreatedBy: userID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidPackage) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create package", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, PackageResponse{
		ID:        record.ID.String(),
		Title:     record.Title,
		Author:    record.Author,
		Rounds:    len(req.Rounds),
		CreatedBy: record.CreatedBy,
	})
}

// Get returns package metadata only; question text stays server-side.
func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid package id", http.StatusBadRequest)
		return
	}

	record, err := h.packageService.GetPackage(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPackageNotFound) {
			http.Error(w, "Package not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pkg, err := record.ToPackage()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PackageResponse{
		ID:        record.ID.String(),
		Title:     record.Title,
		Author:    record.Author,
		Rounds:    len(pkg.Rounds),
		CreatedBy: record.CreatedBy,
	})
}
