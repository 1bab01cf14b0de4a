package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ports"
)

// snapshotVersion is bumped whenever the persisted layout changes incompatibly
const snapshotVersion = 1

// DefaultSlot is the persistence key used when none is configured
const DefaultSlot = "default"

// Snapshot is the persisted form of a session: exactly what a fresh
// controller needs to resume after a reload. In-flight poll state is not part of it.
type Snapshot struct {
	CurrentStageIndex int                                   `json:"current_stage_index"`
	FailureMessage    string                                `json:"failure_message,omitempty"`
	FailureReason     domain.FailureReason                  `json:"failure_reason,omitempty"`
	FinalArtifact     string                                `json:"final_artifact,omitempty"`
	IntroReady        bool                                  `json:"intro_ready"`
	JobID             string                                `json:"job_id"`
	Phase             domain.Phase                          `json:"phase"`
	StageRecords      map[domain.StageID]*domain.StageRecord `json:"stage_records"`
	StageResultShown  bool                                  `json:"stage_result_shown"`
	Version           int                                   `json:"version"`
}

// SessionStore serializes sessions and writes them through to a SnapshotStore
// under one key. A missing or unreadable record always means "no session".
type SessionStore struct {
	key   string
	store ports.SnapshotStore
}

// NewSessionStore creates a session store bound to the given slot
func NewSessionStore(store ports.SnapshotStore, slot string) *SessionStore {
	if slot == "" {
		slot = DefaultSlot
	}
	return &SessionStore{
		key:   "session:" + slot,
		store: store,
	}
}

// Key returns the persistence key of this store
func (s *SessionStore) Key() string {
	return s.key
}

// Snapshot serializes a session and its state
func (s *SessionStore) Snapshot(session *domain.Session, state domain.State) ([]byte, error) {
	if session == nil {
		return nil, domain.ErrNoSession
	}
	snap := Snapshot{
		CurrentStageIndex: session.CurrentStageIndex,
		FailureMessage:    state.Message,
		FailureReason:     state.Failure,
		FinalArtifact:     session.FinalArtifact,
		IntroReady:        introReady(session),
		JobID:             session.JobID,
		Phase:             state.Phase,
		StageRecords:      session.StageRecords,
		StageResultShown:  state.Phase == domain.PhaseChoiceSubmittedPolling || state.Phase == domain.PhaseStageReady,
		Version:           snapshotVersion,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return data, nil
}

// Restore rebuilds a session and its state from serialized data.
// Malformed or inconsistent data yields (nil, IdleState()).
func (s *SessionStore) Restore(data []byte) (*domain.Session, domain.State) {
	if len(data) == 0 {
		return nil, domain.IdleState()
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logging.Logger.Warn("Discarding unreadable session snapshot", "error", err)
		return nil, domain.IdleState()
	}
	if err := validateSnapshot(snap); err != nil {
		logging.Logger.Warn("Discarding invalid session snapshot", "error", err)
		return nil, domain.IdleState()
	}

	session := &domain.Session{
		CurrentStageIndex: snap.CurrentStageIndex,
		FinalArtifact:     snap.FinalArtifact,
		JobID:             snap.JobID,
		StageRecords:      snap.StageRecords,
	}
	if session.StageRecords == nil {
		session.StageRecords = make(map[domain.StageID]*domain.StageRecord)
	}

	state := stateFromSnapshot(snap, session)
	return session, state
}

// Save writes the session through to the underlying store
func (s *SessionStore) Save(ctx context.Context, session *domain.Session, state domain.State) error {
	data, err := s.Snapshot(session, state)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	logging.Logger.Debug("Session persisted", "key", s.key, "state", state.String())
	return nil
}

// Load reads the persisted session. Any failure is treated as "no session".
func (s *SessionStore) Load(ctx context.Context) (*domain.Session, domain.State) {
	data, err := s.store.Load(ctx, s.key)
	if err != nil {
		logging.Logger.Warn("Failed to load session snapshot, starting fresh", "key", s.key, "error", err)
		return nil, domain.IdleState()
	}
	return s.Restore(data)
}

// Clear removes the persisted session
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	logging.Logger.Debug("Session snapshot cleared", "key", s.key)
	return nil
}

func introReady(session *domain.Session) bool {
	rec := session.Record(0)
	return rec != nil && rec.Completed
}

func validateSnapshot(snap Snapshot) error {
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.JobID == "" {
		return fmt.Errorf("%w: missing job id", domain.ErrInvalidSession)
	}
	if snap.CurrentStageIndex < 0 || snap.CurrentStageIndex > domain.LastStageIndex {
		return fmt.Errorf("%w: stage index %d out of range", domain.ErrInvalidSession, snap.CurrentStageIndex)
	}
	for id, rec := range snap.StageRecords {
		stage, err := domain.StageByID(id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: empty record for %s", domain.ErrInvalidSession, id)
		}
		if stage.Index > snap.CurrentStageIndex {
			return fmt.Errorf("%w: record for %s beyond current stage", domain.ErrInvalidSession, id)
		}
	}
	if snap.Phase != "" && !snap.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", domain.ErrInvalidSession, snap.Phase)
	}
	return nil
}

// stateFromSnapshot trusts the stored phase when it is consistent with the
// records and otherwise derives the phase from the records alone.
func stateFromSnapshot(snap Snapshot, session *domain.Session) domain.State {
	idx := session.CurrentStageIndex
	switch snap.Phase {
	case domain.PhaseFailed:
		return domain.Failed(idx, snap.FailureReason, snap.FailureMessage)
	case domain.PhaseFinalizeComplete:
		if session.FinalArtifact != "" {
			return domain.FinalizeComplete()
		}
	case domain.PhaseAllStagesComplete, domain.PhaseAwaitingFinalize:
		if idx == domain.LastStageIndex && stageCompleted(session, idx) {
			if snap.Phase == domain.PhaseAllStagesComplete {
				return domain.AllStagesComplete()
			}
			return domain.AwaitingFinalize()
		}
	}
	return deriveState(session, snap.IntroReady)
}

func deriveState(session *domain.Session, introFlag bool) domain.State {
	idx := session.CurrentStageIndex
	if session.FinalArtifact != "" {
		return domain.FinalizeComplete()
	}
	rec := session.Record(idx)
	if idx == 0 {
		if (rec != nil && rec.Completed) || introFlag {
			return domain.IntroReady()
		}
		return domain.AwaitingIntroGeneration()
	}
	switch {
	case rec == nil || rec.Choice == nil:
		return domain.AwaitingChoice(idx)
	case rec.Completed:
		return domain.StageReady(idx)
	default:
		return domain.ChoiceSubmittedPolling(idx)
	}
}

func stageCompleted(session *domain.Session, idx int) bool {
	rec := session.Record(idx)
	return rec != nil && rec.Completed
}
