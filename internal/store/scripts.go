package store

import "github.com/redis/go-redis/v9"

// acquireOrEnqueueScript takes the lock or appends the action to the queue
// in one step, so an action can never be queued behind a lock that the
// holder's final drain has already released.
//
// KEYS[1] lock, KEYS[2] queue
// ARGV[1] token, ARGV[2] lock ttl ms, ARGV[3] serialized action
var acquireOrEnqueueScript = redis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2]) then
  return 1
end
redis.call('RPUSH', KEYS[2], ARGV[3])
return 0
`)

// compareAndDeleteScript releases the lock only for its current holder.
//
// KEYS[1] lock
// ARGV[1] token
var compareAndDeleteScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// drainAndReacquireScript validates ownership, pops the next queued action,
// rotates the token and prefetches the state the action needs.
// An empty queue deletes the lock in the same step.
//
// KEYS[1] lock, KEYS[2] queue, KEYS[3] game, KEYS[4] timer
// ARGV[1] token, ARGV[2] new token, ARGV[3] lock ttl ms, ARGV[4] game ttl ms,
// ARGV[5] session key prefix
//
// Returns {0} | {1} | {2, newToken, action, timer, sessionFlat, gameFlat}.
var drainAndReacquireScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
  return {0}
end
local action = redis.call('LPOP', KEYS[2])
if not action then
  redis.call('DEL', KEYS[1])
  return {1}
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
local timer = redis.call('GET', KEYS[4])
if not timer then
  timer = ''
end
local session = {}
local ok, decoded = pcall(cjson.decode, action)
if ok and type(decoded) == 'table' and type(decoded['socketId']) == 'string' and decoded['socketId'] ~= '' then
  session = redis.call('HGETALL', ARGV[5] .. decoded['socketId'])
end
local game = redis.call('HGETALL', KEYS[3])
if #game > 0 then
  redis.call('PEXPIRE', KEYS[3], ARGV[4])
end
return {2, ARGV[2], action, timer, session, game}
`)

// prefetchScript reads the game hash, active timer and session in one round
// trip and refreshes the game TTL.
//
// KEYS[1] game, KEYS[2] timer, KEYS[3] session
// ARGV[1] game ttl ms
//
// Returns {timer, sessionFlat, gameFlat}.
var prefetchScript = redis.NewScript(`
local timer = redis.call('GET', KEYS[2])
if not timer then
  timer = ''
end
local session = redis.call('HGETALL', KEYS[3])
local game = redis.call('HGETALL', KEYS[1])
if #game > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {timer, session, game}
`)
