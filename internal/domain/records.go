package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PackageRecord is a stored question package. Rounds hold the []Round tree.
type PackageRecord struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title     string         `json:"title" gorm:"not null"`
	Author    string         `json:"author"`
	Rounds    datatypes.JSON `json:"rounds" gorm:"type:jsonb;not null;default:'[]'"`
	CreatedBy int            `json:"createdBy" gorm:"not null;index"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (PackageRecord) TableName() string {
	return "packages"
}

// ToPackage decodes the stored rounds.
func (r *PackageRecord) ToPackage() (Package, error) {
	pkg := Package{ID: r.ID.String(), Title: r.Title, Author: r.Author}
	if len(r.Rounds) == 0 {
		return pkg, nil
	}
	if err := json.Unmarshal(r.Rounds, &pkg.Rounds); err != nil {
		return Package{}, fmt.Errorf("decode rounds of package %s: %w", r.ID, err)
	}
	return pkg, nil
}

// GameResult archives a finished game.
type GameResult struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	GameID     string         `json:"gameId" gorm:"uniqueIndex;not null"`
	Title      string         `json:"title"`
	PackageID  string         `json:"packageId"`
	WinnerID   *int           `json:"winnerId"`
	Scores     datatypes.JSON `json:"scores" gorm:"type:jsonb;not null;default:'{}'"`
	PlayerIDs  datatypes.JSON `json:"playerIds" gorm:"type:jsonb;not null;default:'[]'"`
	StartedAt  *time.Time     `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// NewGameResult snapshots the final scores of g.
func NewGameResult(g *Game) (*GameResult, error) {
	scores, err := json.Marshal(g.Scores())
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, p := range g.Players {
		if p.Role == RolePlayer {
			ids = append(ids, p.Meta.ID)
		}
	}
	if ids == nil {
		ids = []int{}
	}
	playerIDs, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	result := &GameResult{
		ID:        uuid.New(),
		GameID:    g.ID,
		Title:     g.Title,
		PackageID: g.Package.ID,
		Scores:    datatypes.JSON(scores),
		PlayerIDs: datatypes.JSON(playerIDs),
		StartedAt: g.StartedAt,
	}
	if g.FinishedAt != nil {
		result.FinishedAt = *g.FinishedAt
	} else {
		result.FinishedAt = time.Now().UTC()
	}
	if leader := g.Leader(); leader != nil {
		id := leader.Meta.ID
		result.WinnerID = &id
	}
	return result, nil
}

// ScoreMap decodes Scores.
func (r *GameResult) ScoreMap() (map[int]int, error) {
	out := map[int]int{}
	if len(r.Scores) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(r.Scores, &out); err != nil {
		return nil, err
	}
	return out, nil
}
