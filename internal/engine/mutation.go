package engine

import (
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/transition"
)

// Mutation is a side effect declared by a handler. The executor applies
// persistence mutations first, in order, then broadcasts.
type Mutation interface {
	mutation()
}

type SaveGame struct {
	Game *domain.Game
}

type SetTimer struct {
	Timer *domain.Timer
}

type DeleteTimer struct{}

type SaveTimer struct {
	Suffix string
	Timer  *domain.Timer
}

type DeleteSavedTimer struct {
	Suffix string
}

// ArchiveGame stores the result of a finished game.
type ArchiveGame struct {
	Game *domain.Game
}

type Broadcast struct {
	Intents []broadcast.Intent
}

type JoinRoom struct {
	SocketID string
	Room     string
}

type LeaveRoom struct {
	SocketID string
	Room     string
}

func (SaveGame) mutation()         {}
func (SetTimer) mutation()         {}
func (DeleteTimer) mutation()      {}
func (SaveTimer) mutation()        {}
func (DeleteSavedTimer) mutation() {}
func (ArchiveGame) mutation()      {}
func (Broadcast) mutation()        {}
func (JoinRoom) mutation()         {}
func (LeaveRoom) mutation()        {}

func isPersistence(m Mutation) bool {
	switch m.(type) {
	case Broadcast:
		return false
	}
	return true
}

// TimerMutations converts the timer changes of a transition.
func TimerMutations(tms []transition.TimerMutation) []Mutation {
	out := make([]Mutation, 0, len(tms))
	for _, tm := range tms {
		switch tm.Op {
		case transition.TimerSet:
			out = append(out, SetTimer{Timer: tm.Timer})
		case transition.TimerDelete:
			out = append(out, DeleteTimer{})
		case transition.TimerSave:
			out = append(out, SaveTimer{Suffix: tm.Suffix, Timer: tm.Timer})
		case transition.TimerDeleteSaved:
			out = append(out, DeleteSavedTimer{Suffix: tm.Suffix})
		}
	}
	return out
}

// FromTransition lists the mutations that make a transition durable and
// visible: the game, its timers, the archive when finished, then the
// broadcasts.
func FromTransition(res *transition.Result) []Mutation {
	out := []Mutation{SaveGame{Game: res.Game}}
	out = append(out, TimerMutations(res.TimerMutations)...)
	if res.Finished {
		out = append(out, ArchiveGame{Game: res.Game})
	}
	if len(res.Broadcasts) > 0 {
		out = append(out, Broadcast{Intents: res.Broadcasts})
	}
	return out
}
