package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

var ErrGameNotFound = errors.New("game not found")

// GameRepository stores the Game aggregate as a flat Redis hash.
type GameRepository struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewGameRepository(rdb redis.UniversalClient, ttl time.Duration) *GameRepository {
	return &GameRepository{rdb: rdb, ttl: ttl}
}

func (r *GameRepository) Get(ctx context.Context, id string) (*domain.Game, error) {
	fields, err := r.rdb.HGetAll(ctx, GameKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrGameNotFound
	}
	return DecodeGame(fields)
}

// Save writes the hash, refreshes its TTL and maintains the indexes.
func (r *GameRepository) Save(ctx context.Context, game *domain.Game) error {
	fields, err := EncodeGame(game)
	if err != nil {
		return err
	}
	key := GameKey(game.ID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.PExpire(ctx, key, r.ttl)
		pipe.ZAdd(ctx, GamesIndexKey, redis.Z{Score: float64(game.CreatedAt.UnixMilli()), Member: game.ID})
		if !game.IsPrivate && !game.IsFinished() {
			pipe.SAdd(ctx, PublicGamesKey, game.ID)
		} else {
			pipe.SRem(ctx, PublicGamesKey, game.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save game %s: %w", game.ID, err)
	}
	return nil
}

// Delete removes the game with its timers and queue.
func (r *GameRepository) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, GameKey(id), TimerKey(id), SavedTimerKey(id, domain.SavedTimerShowing), QueueKey(id))
		pipe.ZRem(ctx, GamesIndexKey, id)
		pipe.SRem(ctx, PublicGamesKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	return nil
}

// ListPublic returns open public games, newest first. Ids whose hash
// expired are pruned from the indexes.
func (r *GameRepository) ListPublic(ctx context.Context) ([]*domain.Game, error) {
	ids, err := r.rdb.ZRevRange(ctx, GamesIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	public, err := r.rdb.SMembers(ctx, PublicGamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list public games: %w", err)
	}
	isPublic := make(map[string]bool, len(public))
	for _, id := range public {
		isPublic[id] = true
	}

	var candidates []string
	for _, id := range ids {
		if isPublic[id] {
			candidates = append(candidates, id)
		}
	}
	return r.load(ctx, candidates)
}

// ListActive returns every started game that has not finished yet, the
// games whose countdowns may need attention.
func (r *GameRepository) ListActive(ctx context.Context) ([]*domain.Game, error) {
	ids, err := r.rdb.ZRange(ctx, GamesIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	var active []*domain.Game
	for _, g := range games {
		if g.IsStarted() && !g.IsFinished() {
			active = append(active, g)
		}
	}
	return active, nil
}

// load fetches ids in one pipeline. Ids whose hash expired are pruned from
// the indexes.
func (r *GameRepository) load(ctx context.Context, ids []string) ([]*domain.Game, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, GameKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load games: %w", err)
	}

	var games []*domain.Game
	var stale []interface{}
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			stale = append(stale, ids[i])
			continue
		}
		game, err := DecodeGame(fields)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if len(stale) > 0 {
		r.rdb.SRem(ctx, PublicGamesKey, stale...)
		r.rdb.ZRem(ctx, GamesIndexKey, stale...)
	}
	return games, nil
}

// EncodeGame flattens a game into hash fields: scalars as strings,
// composites as JSON.
func EncodeGame(g *domain.Game) (map[string]interface{}, error) {
	pkg, err := json.Marshal(g.Package)
	if err != nil {
		return nil, fmt.Errorf("encode package: %w", err)
	}
	players, err := json.Marshal(g.Players)
	if err != nil {
		return nil, fmt.Errorf("encode players: %w", err)
	}
	state, err := json.Marshal(g.State)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return map[string]interface{}{
		"id":         g.ID,
		"title":      g.Title,
		"isPrivate":  strconv.FormatBool(g.IsPrivate),
		"maxPlayers": strconv.Itoa(g.MaxPlayers),
		"createdBy":  strconv.Itoa(g.CreatedBy),
		"createdAt":  formatTime(&g.CreatedAt),
		"startedAt":  formatTime(g.StartedAt),
		"finishedAt": formatTime(g.FinishedAt),
		"package":    string(pkg),
		"players":    string(players),
		"state":      string(state),
	}, nil
}

// DecodeGame rebuilds a game from hash fields, including prefetched ones.
func DecodeGame(fields map[string]string) (*domain.Game, error) {
	if len(fields) == 0 {
		return nil, ErrGameNotFound
	}
	g := &domain.Game{
		ID:    fields["id"],
		Title: fields["title"],
	}
	var err error
	if g.IsPrivate, err = strconv.ParseBool(orDefault(fields["isPrivate"], "false")); err != nil {
		return nil, fmt.Errorf("decode isPrivate: %w", err)
	}
	if g.MaxPlayers, err = strconv.Atoi(orDefault(fields["maxPlayers"], "0")); err != nil {
		return nil, fmt.Errorf("decode maxPlayers: %w", err)
	}
	if g.CreatedBy, err = strconv.Atoi(orDefault(fields["createdBy"], "0")); err != nil {
		return nil, fmt.Errorf("decode createdBy: %w", err)
	}
	createdAt, err := parseTime(fields["createdAt"])
	if err != nil {
		return nil, fmt.Errorf("decode createdAt: %w", err)
	}
	if createdAt != nil {
		g.CreatedAt = *createdAt
	}
	if g.StartedAt, err = parseTime(fields["startedAt"]); err != nil {
		return nil, fmt.Errorf("decode startedAt: %w", err)
	}
	if g.FinishedAt, err = parseTime(fields["finishedAt"]); err != nil {
		return nil, fmt.Errorf("decode finishedAt: %w", err)
	}
	if err := unmarshalField(fields, "package", &g.Package); err != nil {
		return nil, err
	}
	if err := unmarshalField(fields, "players", &g.Players); err != nil {
		return nil, err
	}
	if err := unmarshalField(fields, "state", &g.State); err != nil {
		return nil, err
	}
	return g, nil
}

func unmarshalField(fields map[string]string, name string, v interface{}) error {
	raw := fields[name]
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
