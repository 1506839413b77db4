// Package viewstore persists view snapshots so a restarted process can pick
// up the views it was serving.
package viewstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/rent-estimator/internal/domain/rentform"
)

// saveScript writes the snapshot only when no newer version is stored.
// KEYS[1] view hash, ARGV[1] version, ARGV[2] snapshot JSON, ARGV[3] ttl seconds.
const saveScript = `
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'snapshot', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('EXPIRE', KEYS[1], ARGV[3])
else
  redis.call('PERSIST', KEYS[1])
end
return 1
`

const snapshotField = "snapshot"

// ValkeyStore keeps view snapshots in a Valkey-compatible database. Views are
// owned by a single process; the store lets that process rebuild them after a
// restart. It is not a coordination point between replicas.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "rentview"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// Save stores the snapshot unless a newer version is already held. A positive
// ttl is rounded up to at least one second.
func (s *ValkeyStore) Save(ctx context.Context, snap rentform.Snapshot, ttl time.Duration) error {
	if snap.ID == "" {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	seconds := int64(0)
	if ttl > 0 {
		seconds = max(int64(ttl/time.Second), 1)
	}
	cmd := s.client.B().Eval().Script(saveScript).Numkeys(1).
		Key(s.viewKey(snap.ID)).
		Arg(strconv.FormatUint(snap.Version, 10), string(payload), strconv.FormatInt(seconds, 10)).
		Build()
	return s.client.Do(ctx, cmd).Error()
}

// Load implements rentform.SnapshotStore.
func (s *ValkeyStore) Load(ctx context.Context, id string) (rentform.Snapshot, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Hget().Key(s.viewKey(id)).Field(snapshotField).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return rentform.Snapshot{}, false, nil
		}
		return rentform.Snapshot{}, false, err
	}
	var snap rentform.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return rentform.Snapshot{}, false, fmt.Errorf("decode view snapshot: %w", err)
	}
	return snap, true, nil
}

// Delete implements rentform.SnapshotStore.
func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.viewKey(id)).Build()).Error()
}

func (s *ValkeyStore) viewKey(id string) string {
	return fmt.Sprintf("%s:view:%s", s.prefix, id)
}

var _ rentform.SnapshotStore = (*ValkeyStore)(nil)
