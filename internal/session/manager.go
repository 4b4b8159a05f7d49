package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"study_timer/internal/apperrors"
	"study_timer/internal/clock"
)

// Slot is a single persisted key-value slot.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, value []byte) error
}

// Manager owns the one active study session and keeps its slot in sync.
// Storage failures are logged and never returned; the in-memory session
// stays authoritative for the rest of the run.
type Manager struct {
	mu      sync.Mutex
	slot    Slot
	clock   clock.Clock
	logger  *slog.Logger
	current Session
}

func NewManager(slot Slot, clk clock.Clock, logger *slog.Logger) *Manager {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		slot:    slot,
		clock:   clk,
		logger:  logger,
		current: Default(),
	}
}

// Load replaces the in-memory session with the persisted one. A record
// that was migrated, coerced or healed is written back in canonical shape.
func (m *Manager) Load(ctx context.Context) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	current, raw := m.read(ctx, now)

	healed, changed := current.Healed(now)
	if changed {
		m.logger.Warn("running session had no start timestamp, anchoring at now",
			"subject", healed.Subject)
	}
	m.current = healed

	if raw != nil {
		if payload, err := Encode(m.current); err == nil && !bytes.Equal(payload, raw) {
			m.logger.Info("upgrading persisted session to canonical shape")
			m.save(ctx)
		}
	}
	return m.current.Clone()
}

// read returns the decoded session and the raw payload it came from. The
// payload is nil when nothing usable was stored.
func (m *Manager) read(ctx context.Context, now time.Time) (Session, []byte) {
	raw, err := m.slot.Read(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			m.logger.Error("failed to load session", "error", err)
		}
		return Default(), nil
	}

	s, err := Decode(raw, now)
	if err != nil {
		m.logger.Error("failed to load session", "error", err)
		return Default(), nil
	}
	return s, raw
}

func (m *Manager) save(ctx context.Context) {
	payload, err := Encode(m.current)
	if err != nil {
		m.logger.Error("failed to persist session", "error", fmt.Errorf("encode session: %w", err))
		return
	}
	if err := m.slot.Write(ctx, payload); err != nil {
		m.logger.Error("failed to persist session", "error", err)
		return
	}
	m.logger.Debug("session persisted",
		"subject", m.current.Subject,
		"accumulated_seconds", m.current.AccumulatedSeconds,
		"running", m.current.IsRunning)
}

// Start discards whatever session exists and begins a new running one.
func (m *Manager) Start(ctx context.Context, subject string, targetHours float64) (Session, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Session{}, fmt.Errorf("subject is required: %w", apperrors.ErrInvalidInput)
	}
	if targetHours <= 0 || math.IsNaN(targetHours) || math.IsInf(targetHours, 0) {
		return Session{}, fmt.Errorf("target hours must be positive, got %v: %w", targetHours, apperrors.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = New(subject, targetHours, m.clock.Now())
	m.save(ctx)
	m.logger.Info("session started", "subject", subject, "target_hours", targetHours)
	return m.current.Clone(), nil
}

// Toggle pauses a running session or resumes a paused one.
func (m *Manager) Toggle(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.HasActiveSession() {
		return m.current.Clone(), apperrors.ErrNoActiveSession
	}

	m.current = m.current.Toggled(m.clock.Now())
	m.save(ctx)
	if m.current.IsRunning {
		m.logger.Info("session resumed", "subject", m.current.Subject)
	} else {
		m.logger.Info("session paused",
			"subject", m.current.Subject,
			"accumulated_seconds", m.current.AccumulatedSeconds)
	}
	return m.current.Clone(), nil
}

// Reset clears the session only when the user confirmed it.
func (m *Manager) Reset(ctx context.Context, confirmed bool) bool {
	if !confirmed {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("session reset", "subject", m.current.Subject)
	m.current = Default()
	m.save(ctx)
	return true
}

func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

func (m *Manager) Snapshot() Snapshot {
	return m.SnapshotAt(m.clock.Now())
}

func (m *Manager) SnapshotAt(now time.Time) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.SnapshotAt(now)
}
