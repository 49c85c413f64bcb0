package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

// KeyValuer provides access to a named JetStream key-value bucket. It is
// satisfied by messaging.NatsServer.
type KeyValuer interface {
	KeyValue(ctx context.Context, bucket string) (jetstream.KeyValue, error)
}

// KVStore is a Store backed by a JetStream key-value bucket, reachable
// from every server process. Player records live at player.<id> as whole
// JSON documents; room membership is one key per member at
// room.<roomId>.<playerId>, so set add and remove are single-key writes.
//
// Identifiers must be valid key tokens (see proto.ValidID); the router
// rejects anything else at join time.
type KVStore struct {
	src    KeyValuer
	bucket string

	mu sync.Mutex
	kv jetstream.KeyValue
}

func NewKVStore(src KeyValuer, bucket string) *KVStore {
	return &KVStore{src: src, bucket: bucket}
}

// handle lazily binds the bucket, since the backing server may not be
// accepting connections yet when the store is constructed.
func (s *KVStore) handle(ctx context.Context) (jetstream.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv != nil {
		return s.kv, nil
	}
	kv, err := s.src.KeyValue(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("binding bucket %q: %w", s.bucket, err)
	}
	s.kv = kv
	return kv, nil
}

func playerKey(playerID string) string {
	return "player." + playerID
}

func memberKey(roomID, playerID string) string {
	return "room." + roomID + "." + playerID
}

func (s *KVStore) AddMember(ctx context.Context, roomID, playerID string) error {
	kv, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if _, err := kv.Put(ctx, memberKey(roomID, playerID), []byte(playerID)); err != nil {
		return fmt.Errorf("adding %s to room %s: %w", playerID, roomID, err)
	}
	return nil
}

func (s *KVStore) RemoveMember(ctx context.Context, roomID, playerID string) error {
	kv, err := s.handle(ctx)
	if err != nil {
		return err
	}
	err = kv.Delete(ctx, memberKey(roomID, playerID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("removing %s from room %s: %w", playerID, roomID, err)
	}
	return nil
}

func (s *KVStore) Members(ctx context.Context, roomID string) ([]string, error) {
	kv, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	lister, err := kv.ListKeysFiltered(ctx, "room."+roomID+".*")
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing room %s members: %w", roomID, err)
	}
	defer lister.Stop()

	prefix := "room." + roomID + "."
	var ids []string
	for key := range lister.Keys() {
		ids = append(ids, strings.TrimPrefix(key, prefix))
	}
	return ids, nil
}

func (s *KVStore) RoomCount(ctx context.Context, roomID string) (int, error) {
	ids, err := s.Members(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *KVStore) SetPlayer(ctx context.Context, rec *Record) error {
	kv, err := s.handle(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling record for %s: %w", rec.ID, err)
	}
	if _, err := kv.Put(ctx, playerKey(rec.ID), data); err != nil {
		return fmt.Errorf("writing record for %s: %w", rec.ID, err)
	}
	return nil
}

func (s *KVStore) GetPlayer(ctx context.Context, playerID string) (*Record, error) {
	kv, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := kv.Get(ctx, playerKey(playerID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading record for %s: %w", playerID, err)
	}

	var rec Record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, fmt.Errorf("unmarshalling record for %s: %w", playerID, err)
	}
	return &rec, nil
}

func (s *KVStore) DeletePlayer(ctx context.Context, playerID string) error {
	kv, err := s.handle(ctx)
	if err != nil {
		return err
	}
	err = kv.Delete(ctx, playerKey(playerID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting record for %s: %w", playerID, err)
	}
	return nil
}
