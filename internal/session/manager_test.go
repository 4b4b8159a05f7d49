package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"study_timer/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memorySlot struct {
	value    []byte
	readErr  error
	writeErr error
	writes   int
}

func (s *memorySlot) Read(context.Context) ([]byte, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.value == nil {
		return nil, apperrors.ErrNotFound
	}
	return s.value, nil
}

func (s *memorySlot) Write(_ context.Context, value []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.value = append([]byte(nil), value...)
	return nil
}

func newTestManager(slot Slot) (*Manager, *fakeClock, *bytes.Buffer) {
	clk := &fakeClock{now: base}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewManager(slot, clk, logger), clk, &logs
}

func TestLoadEmptySlotGivesDefault(t *testing.T) {
	slot := &memorySlot{}
	m, _, _ := newTestManager(slot)

	assert.Equal(t, Default(), m.Load(context.Background()))
	assert.Zero(t, slot.writes)
}

func TestLoadReadFailureIsLoggedNotFatal(t *testing.T) {
	slot := &memorySlot{readErr: errors.New("disk on fire")}
	m, _, logs := newTestManager(slot)

	assert.Equal(t, Default(), m.Load(context.Background()))
	assert.Contains(t, logs.String(), "failed to load session")
}

func TestLoadCorruptPayloadGivesDefault(t *testing.T) {
	slot := &memorySlot{value: []byte(`{"subject":`)}
	m, _, logs := newTestManager(slot)

	assert.Equal(t, Default(), m.Load(context.Background()))
	assert.Contains(t, logs.String(), "failed to load session")
}

func TestLoadMigratesLegacyAndPersistsCanonical(t *testing.T) {
	slot := &memorySlot{value: []byte(`{"subject":"Math","targetHours":2,"elapsedSeconds":125,"isRunning":false}`)}
	m, _, _ := newTestManager(slot)

	got := m.Load(context.Background())
	assert.Equal(t, Session{Subject: "Math", TargetHours: 2, AccumulatedSeconds: 125}, got)
	assert.JSONEq(t,
		`{"subject":"Math","targetHours":2,"accumulatedSeconds":125,"startTimestamp":null,"isRunning":false}`,
		string(slot.value))
}

func TestLoadRunningLegacyAnchorsAtLoadTime(t *testing.T) {
	slot := &memorySlot{value: []byte(`{"subject":"Math","targetHours":2,"elapsedSeconds":10,"isRunning":true}`)}
	m, clk, _ := newTestManager(slot)

	got := m.Load(context.Background())
	require.NotNil(t, got.StartTimestamp)
	assert.Equal(t, clk.Now().UnixMilli(), *got.StartTimestamp)
	assert.Equal(t, int64(10), got.AccumulatedSeconds)

	clk.Advance(3 * time.Second)
	assert.Equal(t, int64(13), m.Snapshot().ElapsedSeconds)
}

func TestLoadHealsRunningSessionWithoutAnchor(t *testing.T) {
	slot := &memorySlot{value: []byte(`{"subject":"Math","targetHours":1,"accumulatedSeconds":50,"startTimestamp":null,"isRunning":true}`)}
	m, clk, logs := newTestManager(slot)

	got := m.Load(context.Background())
	require.NotNil(t, got.StartTimestamp)
	assert.Equal(t, clk.Now().UnixMilli(), *got.StartTimestamp)
	assert.Equal(t, 1, slot.writes)
	assert.Contains(t, logs.String(), "no start timestamp")
}

func TestLoadCanonicalTwiceIsStable(t *testing.T) {
	raw := []byte(`{"subject":"Math","targetHours":2,"accumulatedSeconds":300,"startTimestamp":1772441000000,"isRunning":true}`)
	slot := &memorySlot{value: raw}
	m, clk, _ := newTestManager(slot)

	first := m.Load(context.Background())
	clk.Advance(time.Minute)
	second := m.Load(context.Background())

	assert.Equal(t, first, second)
	assert.Zero(t, slot.writes)
}

func TestStartReplacesSessionAndPersists(t *testing.T) {
	slot := &memorySlot{}
	m, clk, _ := newTestManager(slot)
	ctx := context.Background()

	_, err := m.Start(ctx, "Math", 1)
	require.NoError(t, err)
	clk.Advance(10 * time.Minute)
	_, err = m.Toggle(ctx)
	require.NoError(t, err)

	got, err := m.Start(ctx, "  Biology ", 2)
	require.NoError(t, err)
	assert.Equal(t, "Biology", got.Subject)
	assert.Equal(t, 2.0, got.TargetHours)
	assert.Zero(t, got.AccumulatedSeconds)
	assert.True(t, got.IsRunning)
	require.NotNil(t, got.StartTimestamp)
	assert.Equal(t, clk.Now().UnixMilli(), *got.StartTimestamp)

	persisted, err := Decode(slot.value, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, got, persisted)
}

func TestStartRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		hours   float64
	}{
		{"blank subject", "   ", 1},
		{"zero hours", "Math", 0},
		{"negative hours", "Math", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := &memorySlot{}
			m, _, _ := newTestManager(slot)
			_, err := m.Start(context.Background(), tt.subject, tt.hours)
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, Default(), m.Session())
			assert.Zero(t, slot.writes)
		})
	}
}

func TestStartThenImmediatePause(t *testing.T) {
	m, clk, _ := newTestManager(&memorySlot{})
	ctx := context.Background()

	_, err := m.Start(ctx, "Math", 1)
	require.NoError(t, err)
	clk.Advance(2500 * time.Millisecond)
	elapsed := m.Snapshot().ElapsedSeconds

	got, err := m.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, elapsed, got.AccumulatedSeconds)
	assert.Nil(t, got.StartTimestamp)
	assert.False(t, got.IsRunning)
}

func TestPauseResumeDoesNotLoseOrDoubleCount(t *testing.T) {
	m, clk, _ := newTestManager(&memorySlot{})
	ctx := context.Background()

	_, err := m.Start(ctx, "Math", 1)
	require.NoError(t, err)
	clk.Advance(5 * time.Second)
	_, err = m.Toggle(ctx)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	assert.Equal(t, int64(5), m.Snapshot().ElapsedSeconds)

	_, err = m.Toggle(ctx)
	require.NoError(t, err)
	clk.Advance(5 * time.Second)

	assert.Equal(t, int64(10), m.Snapshot().ElapsedSeconds)
}

func TestRapidTogglesReadLatestState(t *testing.T) {
	m, clk, _ := newTestManager(&memorySlot{})
	ctx := context.Background()
	_, err := m.Start(ctx, "Math", 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Toggle(ctx)
		}()
	}
	wg.Wait()

	// An even number of toggles lands back on running.
	got := m.Session()
	assert.True(t, got.IsRunning)
	require.NotNil(t, got.StartTimestamp)
	assert.Equal(t, clk.Now().UnixMilli(), *got.StartTimestamp)
}

func TestToggleWithoutSession(t *testing.T) {
	slot := &memorySlot{}
	m, _, _ := newTestManager(slot)

	_, err := m.Toggle(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNoActiveSession)
	assert.Zero(t, slot.writes)
}

func TestResetRequiresConfirmation(t *testing.T) {
	slot := &memorySlot{}
	m, clk, _ := newTestManager(slot)
	ctx := context.Background()

	before, err := m.Start(ctx, "Math", 1)
	require.NoError(t, err)
	writes := slot.writes

	clk.Advance(time.Minute)
	assert.False(t, m.Reset(ctx, false))
	assert.Equal(t, before, m.Session())
	assert.Equal(t, writes, slot.writes)

	assert.True(t, m.Reset(ctx, true))
	assert.Equal(t, Default(), m.Session())
	assert.False(t, m.Snapshot().HasActiveSession)

	persisted, err := Decode(slot.value, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, Default(), persisted)
}

func TestWriteFailureKeepsInMemorySession(t *testing.T) {
	slot := &memorySlot{writeErr: errors.New("quota exceeded")}
	m, clk, logs := newTestManager(slot)
	ctx := context.Background()

	_, err := m.Start(ctx, "Math", 1)
	require.NoError(t, err)
	clk.Advance(30 * time.Second)
	got, err := m.Toggle(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(30), got.AccumulatedSeconds)
	assert.Equal(t, got, m.Session())
	assert.Contains(t, logs.String(), "failed to persist session")
}

func TestBiologyHourReachesFullProgress(t *testing.T) {
	m, clk, _ := newTestManager(&memorySlot{})

	_, err := m.Start(context.Background(), "Biology", 1)
	require.NoError(t, err)
	clk.Advance(3600 * time.Second)

	snap := m.Snapshot()
	assert.Equal(t, int64(3600), snap.ElapsedSeconds)
	assert.InDelta(t, 100.0, snap.ProgressPercentage, 1e-9)
	assert.True(t, snap.IsRunning)
	assert.True(t, snap.HasActiveSession)
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(&memorySlot{}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, Default(), m.Session())
}

func TestSessionReturnsDetachedCopy(t *testing.T) {
	m, clk, _ := newTestManager(&memorySlot{})
	started, err := m.Start(context.Background(), "Math", 1)
	require.NoError(t, err)
	require.NotNil(t, started.StartTimestamp)

	*started.StartTimestamp = 1
	got := m.Session()
	require.NotNil(t, got.StartTimestamp)
	assert.Equal(t, clk.Now().UnixMilli(), *got.StartTimestamp)

	*got.StartTimestamp = 1
	again := m.Session()
	assert.Equal(t, clk.Now().UnixMilli(), *again.StartTimestamp)
}
