package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/api"
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/config"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/gameplay"
	"github.com/dom/quiz-engine/internal/repository"
	repoPostgres "github.com/dom/quiz-engine/internal/repository/postgres"
	"github.com/dom/quiz-engine/internal/service"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/dom/quiz-engine/internal/transition"
	"github.com/dom/quiz-engine/internal/transport"
	"github.com/dom/quiz-engine/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_quiz"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"game_results", "packages"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Environment:       "test",
		LogLevel:          "error",
		JWTSecret:         "test-jwt-secret-key-for-testing-only",
		LockTTL:           5 * time.Second,
		GameTTL:           time.Hour,
		TimerSafetyMargin: 100 * time.Millisecond,
		SavedTimerTTL:     time.Hour,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server    *httptest.Server
	DB        *TestDB
	Redis     *TestRedis
	Repos     *repository.Repositories
	Games     *store.GameRepository
	Services  *service.Services
	Hub       *websocket.Hub
	Transport *transport.RedisTransport
	Executor  *engine.Executor
	Config    *config.Config
}

// NewTestServer wires the full process over a postgres container and miniredis
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	tr := NewTestRedis(t)
	cfg := TestConfig()

	repos := repoPostgres.NewRepositories(testDB.DB)
	games := store.NewGameRepository(tr.Client, cfg.GameTTL)
	sessions := store.NewSessionStore(tr.Client, cfg.GameTTL)
	timers := store.NewTimerStore(tr.Client, cfg.TimerSafetyMargin, cfg.SavedTimerTTL)

	hub := websocket.NewHub(nil, sessions)
	relay := transport.NewRedisTransport(tr.Client, hub, cfg.GameTTL)
	fanout := broadcast.NewFanout(relay, sessions)
	services := service.NewServices(repos, games, fanout, cfg)

	registry := engine.NewRegistry()
	gameplay.NewService(transition.NewDefaultRouter()).Register(registry)
	exec := engine.NewExecutor(engine.Deps{
		Locks:    store.NewLockManager(tr.Client),
		Games:    games,
		Timers:   timers,
		Archive:  services.Games,
		Rooms:    relay,
		Fanout:   fanout,
		Handlers: registry,
	}, engine.Options{LockTTL: cfg.LockTTL, GameTTL: cfg.GameTTL})
	hub.SetSubmitter(exec)
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	go relay.Run(ctx)
	select {
	case <-relay.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("transport relay did not subscribe")
	}

	server := httptest.NewServer(api.NewRouter(services, hub))

	ts := &TestServer{
		Server:    server,
		DB:        testDB,
		Redis:     tr,
		Repos:     repos,
		Games:     games,
		Services:  services,
		Hub:       hub,
		Transport: relay,
		Executor:  exec,
		Config:    cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
		cancel()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}

// Token signs an access token for userID with the server's secret
func (ts *TestServer) Token(t *testing.T, userID int) string {
	t.Helper()
	return GenerateToken(t, ts.Config.JWTSecret, userID)
}
