package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/rs/zerolog"
)

// Store persists completed call records
type Store interface {
	SaveCallRecord(ctx context.Context, record types.CallRecord) error
	GetCallRecords(ctx context.Context, dateKey string) ([]types.CallRecord, error)
	GetAgentCallsByDate(ctx context.Context, agentID, dateKey string) ([]types.CallRecord, error)
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Mode {
	case DynamoModeLocal, DynamoModeAWS:
		return NewDynamoDBStore(ctx, cfg, logger)
	case DynamoModeMemory:
		logger.Info().Msg("call records kept in memory")
		return NewMemoryStore(), nil
	default:
		logger.Info().Msg("call record export disabled (DYNAMO_MODE=none)")
		return NewNoopStore(), nil
	}
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveCallRecord(_ context.Context, _ types.CallRecord) error { return nil }
func (s *NoopStore) GetCallRecords(_ context.Context, _ string) ([]types.CallRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetAgentCallsByDate(_ context.Context, _, _ string) ([]types.CallRecord, error) {
	return nil, nil
}

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]types.CallRecord // by DateKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]types.CallRecord)}
}

func (s *MemoryStore) SaveCallRecord(_ context.Context, record types.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.DateKey] = append(s.records[record.DateKey], record)
	return nil
}

func (s *MemoryStore) GetCallRecords(_ context.Context, dateKey string) ([]types.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.CallRecord, len(s.records[dateKey]))
	copy(out, s.records[dateKey])
	sort.Slice(out, func(i, j int) bool { return out[i].CallID < out[j].CallID })
	return out, nil
}

func (s *MemoryStore) GetAgentCallsByDate(ctx context.Context, agentID, dateKey string) ([]types.CallRecord, error) {
	all, _ := s.GetCallRecords(ctx, dateKey)
	var out []types.CallRecord
	for _, r := range all {
		if r.AgentID == agentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Count returns the number of stored records
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, recs := range s.records {
		n += len(recs)
	}
	return n
}
