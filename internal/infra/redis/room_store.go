package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"phish-party-service/internal/app"
	"phish-party-service/internal/domain"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Notes:
//   - Rooms stay in a local map so the in-process broadcast keeps working.
//   - The liveness key is claimed with SETNX, so two instances sharing Redis
//     never hand out the same room code.
//   - Every snapshot is mirrored as JSON for dashboards and debugging; it is
//     never read back by the game.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) Add(room *app.Room) error {
	code := room.Code()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		return domain.ErrRoomExists
	}
	claimed, err := s.client.SetNX(context.Background(), s.liveKey(code), "1", s.ttl).Result()
	if err != nil {
		// best-effort: a Redis outage must not stop local play
		log.Warn().Err(err).Str("room", code).Msg("redis liveness claim failed")
	} else if !claimed {
		return domain.ErrRoomExists
	}
	s.rooms[code] = room
	go s.mirror(code, room)
	return nil
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

// Codes lists the live room codes.
func (s *RoomStore) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	return codes
}

func (s *RoomStore) DeleteIfEmpty(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok || !room.IsEmpty() {
		return false
	}
	delete(s.rooms, code)
	s.clear(code)
	return true
}

// mirror writes each snapshot until the room closes, then clears the keys.
func (s *RoomStore) mirror(code string, room *app.Room) {
	updates, cancel := room.Subscribe()
	defer cancel()
	ctx := context.Background()
	for snap := range updates {
		data, err := json.Marshal(snap)
		if err != nil {
			log.Warn().Err(err).Str("room", code).Msg("encode room snapshot")
			continue
		}
		pipe := s.client.Pipeline()
		pipe.Set(ctx, s.stateKey(code), data, s.ttl)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.liveKey(code), s.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			log.Debug().Err(err).Str("room", code).Msg("mirror room snapshot")
		}
	}
	s.clear(code)
}

func (s *RoomStore) clear(code string) {
	_ = s.client.Del(context.Background(), s.liveKey(code), s.stateKey(code)).Err()
}

func (s *RoomStore) liveKey(code string) string {
	return "phishparty:room:" + code
}

func (s *RoomStore) stateKey(code string) string {
	return "phishparty:room:" + code + ":state"
}
