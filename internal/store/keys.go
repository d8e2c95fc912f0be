package store

import "strings"

const (
	lockPrefix    = "lock:game:"
	queuePrefix   = "queue:game:"
	gamePrefix    = "game:"
	timerPrefix   = "timer:"
	claimPrefix   = "timer:claim:"
	SessionPrefix = "session:"
	roomPrefix    = "room:"

	GamesIndexKey  = "games:index"
	PublicGamesKey = "games:public"
)

func LockKey(gameID string) string {
	return lockPrefix + gameID
}

func QueueKey(gameID string) string {
	return queuePrefix + gameID
}

func GameKey(gameID string) string {
	return gamePrefix + gameID
}

// TimerKey is the active countdown of a game. Its expiry drives TIMER_EXPIRED.
func TimerKey(gameID string) string {
	return timerPrefix + gameID
}

// SavedTimerKey holds a parked countdown, e.g. the showing timer during answering.
func SavedTimerKey(gameID, suffix string) string {
	return timerPrefix + gameID + ":" + suffix
}

// TimerClaimKey guards one expiry of one countdown instance against
// duplicate processing. Instances of the same game are claimed independently.
func TimerClaimKey(gameID, instance string) string {
	return claimPrefix + gameID + ":" + instance
}

func SessionKey(socketID string) string {
	return SessionPrefix + socketID
}

func RoomMembersKey(room string) string {
	return roomPrefix + room + ":members"
}

// ParseActiveTimerKey extracts the game id from an active timer key. Saved
// timers and claim keys are rejected.
func ParseActiveTimerKey(key string) (string, bool) {
	if !strings.HasPrefix(key, timerPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, timerPrefix)
	if id == "" || strings.Contains(id, ":") {
		return "", false
	}
	return id, true
}
