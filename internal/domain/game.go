package domain

import (
	"sort"
	"time"
)

type PlayerRole string

const (
	RoleShowman   PlayerRole = "SHOWMAN"
	RolePlayer    PlayerRole = "PLAYER"
	RoleSpectator PlayerRole = "SPECTATOR"
)

type PlayerGameStatus string

const (
	PlayerInGame       PlayerGameStatus = "IN_GAME"
	PlayerDisconnected PlayerGameStatus = "DISCONNECTED"
)

type PlayerMeta struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar,omitempty"`
}

type Player struct {
	Meta         PlayerMeta       `json:"meta"`
	Role         PlayerRole       `json:"role"`
	Score        int              `json:"score"`
	GameStatus   PlayerGameStatus `json:"gameStatus"`
	GameSlot     *int             `json:"gameSlot"`
	IsMuted      bool             `json:"isMuted"`
	IsRestricted bool             `json:"isRestricted"`
	IsBanned     bool             `json:"isBanned"`
	JoinedAt     time.Time        `json:"joinedAt"`
}

func (p *Player) ID() int {
	return p.Meta.ID
}

func (p *Player) IsInGame() bool {
	return p.GameStatus == PlayerInGame
}

// IsActivePlayer reports whether p is a connected contestant.
func (p *Player) IsActivePlayer() bool {
	return p.Role == RolePlayer && p.GameStatus == PlayerInGame && !p.IsBanned
}

// Game is the aggregate root of one quiz session.
type Game struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	IsPrivate  bool       `json:"isPrivate"`
	MaxPlayers int        `json:"maxPlayers"`
	CreatedBy  int        `json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Package    Package    `json:"package"`
	Players    []*Player  `json:"players"`
	State      GameState  `json:"gameState"`
}

func (g *Game) FindPlayer(userID int) *Player {
	for _, p := range g.Players {
		if p.Meta.ID == userID {
			return p
		}
	}
	return nil
}

// RemovePlayer hard-removes a player (used for bans).
func (g *Game) RemovePlayer(userID int) {
	kept := g.Players[:0]
	for _, p := range g.Players {
		if p.Meta.ID != userID {
			kept = append(kept, p)
		}
	}
	g.Players = kept
}

func (g *Game) Showman() *Player {
	for _, p := range g.Players {
		if p.Role == RoleShowman && p.IsInGame() {
			return p
		}
	}
	return nil
}

// ActivePlayers returns connected contestants ordered by seat.
func (g *Game) ActivePlayers() []*Player {
	var out []*Player
	for _, p := range g.Players {
		if p.IsActivePlayer() {
			out = append(out, p)
		}
	}
	sortBySlot(out)
	return out
}

// ActivePlayerIDs is ActivePlayers projected to ids.
func (g *Game) ActivePlayerIDs() []int {
	players := g.ActivePlayers()
	ids := make([]int, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.Meta.ID)
	}
	return ids
}

// FreeSlot returns the lowest seat index not held by an in-game player.
func (g *Game) FreeSlot() (int, bool) {
	taken := make(map[int]bool)
	for _, p := range g.Players {
		if p.Role == RolePlayer && p.IsInGame() && p.GameSlot != nil {
			taken[*p.GameSlot] = true
		}
	}
	for slot := 0; slot < g.MaxPlayers; slot++ {
		if !taken[slot] {
			return slot, true
		}
	}
	return 0, false
}

func (g *Game) IsSlotTaken(slot int) bool {
	for _, p := range g.Players {
		if p.Role == RolePlayer && p.IsInGame() && p.GameSlot != nil && *p.GameSlot == slot {
			return true
		}
	}
	return false
}

func (g *Game) CurrentRound() *Round {
	if g.State.CurrentRound == nil {
		return nil
	}
	idx := *g.State.CurrentRound
	if idx < 0 || idx >= len(g.Package.Rounds) {
		return nil
	}
	return &g.Package.Rounds[idx]
}

// NextRound returns the round after the current one, or nil.
func (g *Game) NextRound() *Round {
	if g.State.CurrentRound == nil {
		if len(g.Package.Rounds) > 0 {
			return &g.Package.Rounds[0]
		}
		return nil
	}
	idx := *g.State.CurrentRound + 1
	if idx >= len(g.Package.Rounds) {
		return nil
	}
	return &g.Package.Rounds[idx]
}

func (g *Game) IsFinalRound() bool {
	r := g.CurrentRound()
	return r != nil && r.Type == RoundTypeFinal
}

// CurrentQuestion resolves State.CurrentQuestion inside the current round.
func (g *Game) CurrentQuestion() (*Question, *Theme) {
	if g.State.CurrentQuestion == nil {
		return nil, nil
	}
	round := g.CurrentRound()
	if round == nil {
		return nil, nil
	}
	return round.FindQuestion(*g.State.CurrentQuestion)
}

func (g *Game) IsStarted() bool {
	return g.StartedAt != nil
}

func (g *Game) IsFinished() bool {
	return g.FinishedAt != nil
}

// Scores returns the contestants' scores keyed by user id.
func (g *Game) Scores() map[int]int {
	scores := make(map[int]int)
	for _, p := range g.Players {
		if p.Role == RolePlayer {
			scores[p.Meta.ID] = p.Score
		}
	}
	return scores
}

// Leader returns the contestant with the highest score; ties go to the lower seat.
func (g *Game) Leader() *Player {
	var best *Player
	for _, p := range g.ActivePlayersIncludingDisconnected() {
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	return best
}

// ActivePlayersIncludingDisconnected returns every non-banned contestant by seat.
func (g *Game) ActivePlayersIncludingDisconnected() []*Player {
	var out []*Player
	for _, p := range g.Players {
		if p.Role == RolePlayer && !p.IsBanned {
			out = append(out, p)
		}
	}
	sortBySlot(out)
	return out
}

func sortBySlot(players []*Player) {
	sort.SliceStable(players, func(i, j int) bool {
		si, sj := slotOf(players[i]), slotOf(players[j])
		if si != sj {
			return si < sj
		}
		return players[i].Meta.ID < players[j].Meta.ID
	})
}

func slotOf(p *Player) int {
	if p.GameSlot == nil {
		return 1 << 30
	}
	return *p.GameSlot
}
