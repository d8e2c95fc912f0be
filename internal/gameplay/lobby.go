package gameplay

import (
	"context"
	"fmt"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/transition"
)

func (s *Service) join(_ context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, err := ac.RequireGame()
	if err != nil {
		return nil, err
	}
	if game.IsFinished() {
		return nil, domain.NewClientError(domain.ErrCodeInvalidPhase, "the game is over")
	}
	userID := callerID(ac)
	if userID == 0 {
		return nil, domain.NewClientError(domain.ErrCodeInvalidPayload, "JOIN requires an authenticated user")
	}
	var req JoinPayload
	if len(ac.Action.Payload) > 0 {
		if err := ac.Action.Decode(&req); err != nil {
			return nil, err
		}
	}

	p := game.FindPlayer(userID)
	if p != nil {
		err = rejoin(game, p)
	} else {
		p, err = seat(game, userID, req, ac)
	}
	if err != nil {
		return nil, err
	}

	mutations := []engine.Mutation{engine.SaveGame{Game: game}}
	intents := []broadcast.Intent{
		broadcast.ToGame(broadcast.EventPlayerJoined, broadcast.PlayerJoinedPayload{Player: p}),
	}
	if socketID := ac.Action.SocketID; socketID != "" {
		mutations = append(mutations, engine.JoinRoom{SocketID: socketID, Room: game.ID})
		intents = append(intents, broadcast.ToSocket(socketID, broadcast.EventGameData,
			broadcast.GameDataPayload{Game: broadcast.NewGameView(game, p.Role, userID)}))
	}
	return append(mutations, engine.Broadcast{Intents: intents}), nil
}

// seat adds a new participant in the requested role.
func seat(game *domain.Game, userID int, req JoinPayload, ac *engine.ActionContext) (*domain.Player, error) {
	role := req.Role
	if role == "" {
		role = domain.RolePlayer
	}
	name := req.Username
	if name == "" {
		name = fmt.Sprintf("player%d", userID)
	}
	p := &domain.Player{
		Meta:       domain.PlayerMeta{ID: userID, Username: name, AvatarURL: req.AvatarURL},
		Role:       role,
		GameStatus: domain.PlayerInGame,
		JoinedAt:   ac.Now,
	}

	switch role {
	case domain.RoleShowman:
		if game.Showman() != nil {
			return nil, domain.NewClientError(domain.ErrCodeSlotTaken, "the game already has a showman")
		}
	case domain.RolePlayer:
		slot, err := pickSlot(game, req.Slot)
		if err != nil {
			return nil, err
		}
		p.GameSlot = &slot
	case domain.RoleSpectator:
	default:
		return nil, domain.NewClientError(domain.ErrCodeInvalidPayload, "unknown role %q", role)
	}

	game.Players = append(game.Players, p)
	return p, nil
}

func pickSlot(game *domain.Game, requested *int) (int, error) {
	if requested != nil {
		slot := *requested
		if slot < 0 || slot >= game.MaxPlayers {
			return 0, domain.NewClientError(domain.ErrCodeInvalidPayload, "slot %d does not exist", slot)
		}
		if game.IsSlotTaken(slot) {
			return 0, domain.NewClientError(domain.ErrCodeSlotTaken, "slot %d is taken", slot)
		}
		return slot, nil
	}
	slot, ok := game.FreeSlot()
	if !ok {
		return 0, domain.NewClientError(domain.ErrCodeGameFull, "the game is full")
	}
	return slot, nil
}

// rejoin reconnects a known participant, moving a contestant to a free seat
// if theirs was taken meanwhile.
func rejoin(game *domain.Game, p *domain.Player) error {
	if p.IsInGame() {
		return nil
	}
	switch p.Role {
	case domain.RoleShowman:
		if game.Showman() != nil {
			return domain.NewClientError(domain.ErrCodeSlotTaken, "the game already has a showman")
		}
	case domain.RolePlayer:
		if p.GameSlot == nil || game.IsSlotTaken(*p.GameSlot) {
			slot, err := pickSlot(game, nil)
			if err != nil {
				return err
			}
			p.GameSlot = &slot
		}
	}
	p.GameStatus = domain.PlayerInGame
	return nil
}

func (s *Service) leave(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	disconnect := ac.Action.Type == engine.ActionDisconnect
	if ac.Game == nil && disconnect {
		return nil, nil
	}
	game, err := ac.RequireGame()
	if err != nil {
		return nil, err
	}

	var mutations []engine.Mutation
	if socketID := ac.Action.SocketID; socketID != "" {
		mutations = append(mutations, engine.LeaveRoom{SocketID: socketID, Room: game.ID})
	}

	p := game.FindPlayer(callerID(ac))
	if p == nil || !p.IsInGame() {
		if disconnect {
			return mutations, nil
		}
		return nil, domain.NewClientError(domain.ErrCodePlayerNotFound, "you are not in this game")
	}
	p.GameStatus = domain.PlayerDisconnected

	gone, err := s.playerGone(ctx, ac, p.Meta.ID,
		broadcast.ToGame(broadcast.EventPlayerLeft, broadcast.PlayerLeftPayload{UserID: p.Meta.ID}))
	if err != nil {
		return nil, err
	}
	return append(gone, mutations...), nil
}

// playerGone repairs turn bookkeeping after a contestant left or was banned,
// then lets the router react with a PLAYER_LEFT trigger.
func (s *Service) playerGone(ctx context.Context, ac *engine.ActionContext, playerID int, lead ...broadcast.Intent) ([]engine.Mutation, error) {
	game := ac.Game
	if !game.IsStarted() || game.IsFinished() {
		return commit(game, nil, lead...), nil
	}

	st := &game.State
	switch domain.GetGamePhase(game) {
	case domain.PhaseStakeBidding:
		game.ReconcileStake(st.StakeQuestionData)
	case domain.PhaseFinalThemeElimination:
		if cur := st.FinalRoundData.CurrentTurnPlayer(); cur != nil && *cur == playerID {
			game.AdvanceFinalTurn(st.FinalRoundData)
		}
	case domain.PhaseChoosing:
		if id := st.CurrentTurnPlayerID; id != nil && *id == playerID {
			st.CurrentTurnPlayerID = game.FirstTurnPlayer()
			lead = append(lead, broadcast.ToGame(broadcast.EventTurnPlayerChanged,
				broadcast.TurnPlayerChangedPayload{PlayerID: st.CurrentTurnPlayerID}))
		}
	}

	res, err := s.transit(ctx, ac, transition.TriggerPlayerLeft, transition.SystemActor(),
		transition.PlayerLeftPayload{PlayerID: playerID})
	if err != nil {
		return nil, err
	}
	return commit(game, res, lead...), nil
}

func (s *Service) start(ctx context.Context, ac *engine.ActionContext) ([]engine.Mutation, error) {
	game, p, err := showman(ac)
	if err != nil {
		return nil, err
	}
	if err := inPhase(game, domain.PhaseLobby); err != nil {
		return nil, err
	}
	res, err := s.transit(ctx, ac, transition.TriggerUserAction, actorOf(p), transition.StartPayload{})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, domain.NewClientError(domain.ErrCodeInvalidPhase, "the game needs at least one eligible player to start")
	}
	return commit(game, res), nil
}
