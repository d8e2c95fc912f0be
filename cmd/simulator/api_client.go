package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dom/quiz-engine/internal/api/handlers"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewAPIClient creates a new API client. Tokens are minted locally with the
// server's JWT secret.
func NewAPIClient(baseURL, secret string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Token signs an access token for userID
func (c *APIClient) Token(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
	})
	return token.SignedString([]byte(c.secret))
}

// WebSocketURL returns the socket endpoint for token
func (c *APIClient) WebSocketURL(token string) string {
	base := strings.Replace(c.baseURL, "http", "ws", 1)
	return fmt.Sprintf("%s/ws?token=%s", base, token)
}

// CreatePackage uploads a question package
func (c *APIClient) CreatePackage(token string, pkg domain.Package) (*handlers.PackageResponse, error) {
	body := handlers.CreatePackageRequest{Title: pkg.Title, Author: pkg.Author, Rounds: pkg.Rounds}

	var result handlers.PackageResponse
	if err := c.do(http.MethodPost, "/packages", body, token, http.StatusCreated, &result); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}
	return &result, nil
}

// CreateGame opens a lobby over packageID
func (c *APIClient) CreateGame(token, packageID string, maxPlayers int, private bool) (*handlers.CreateGameResponse, error) {
	body := handlers.CreateGameRequest{PackageID: packageID, MaxPlayers: maxPlayers, IsPrivate: private}

	var result handlers.CreateGameResponse
	if err := c.do(http.MethodPost, "/games", body, token, http.StatusCreated, &result); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &result, nil
}

func (c *APIClient) do(method, path string, body interface{}, token string, wantStatus int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
