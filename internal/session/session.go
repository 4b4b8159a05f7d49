package session

import (
	"encoding/json"
	"time"
)

// Session is the persisted study session in its canonical shape.
type Session struct {
	Subject            string  `json:"subject"`
	TargetHours        float64 `json:"targetHours"`
	AccumulatedSeconds int64   `json:"accumulatedSeconds"`
	StartTimestamp     *int64  `json:"startTimestamp"`
	IsRunning          bool    `json:"isRunning"`
}

// Snapshot is the read-only view handed to the display layer.
type Snapshot struct {
	Subject            string  `json:"subject"`
	TargetHours        float64 `json:"targetHours"`
	ElapsedSeconds     int64   `json:"elapsedSeconds"`
	IsRunning          bool    `json:"isRunning"`
	ProgressPercentage float64 `json:"progressPercentage"`
	HasActiveSession   bool    `json:"hasActiveSession"`
}

func Default() Session {
	return Session{}
}

// New returns a fresh running session anchored at now.
func New(subject string, targetHours float64, now time.Time) Session {
	start := now.UnixMilli()
	return Session{
		Subject:            subject,
		TargetHours:        targetHours,
		AccumulatedSeconds: 0,
		StartTimestamp:     &start,
		IsRunning:          true,
	}
}

func (s Session) HasActiveSession() bool {
	return s.Subject != "" && s.TargetHours > 0
}

// intervalSeconds is the whole seconds spent in the current running
// interval. A wall clock that moved behind the anchor counts as zero.
func (s Session) intervalSeconds(now time.Time) int64 {
	if !s.IsRunning || s.StartTimestamp == nil {
		return 0
	}
	ms := now.UnixMilli() - *s.StartTimestamp
	if ms < 0 {
		return 0
	}
	return ms / 1000
}

func (s Session) ElapsedSeconds(now time.Time) int64 {
	return s.AccumulatedSeconds + s.intervalSeconds(now)
}

// ProgressPercentage is unclamped and may exceed 100.
func (s Session) ProgressPercentage(now time.Time) float64 {
	if !s.HasActiveSession() {
		return 0
	}
	return float64(s.ElapsedSeconds(now)) / (s.TargetHours * 3600) * 100
}

// Paused folds the current interval into AccumulatedSeconds.
func (s Session) Paused(now time.Time) Session {
	s.AccumulatedSeconds += s.intervalSeconds(now)
	s.StartTimestamp = nil
	s.IsRunning = false
	return s
}

func (s Session) Resumed(now time.Time) Session {
	start := now.UnixMilli()
	s.StartTimestamp = &start
	s.IsRunning = true
	return s
}

func (s Session) Toggled(now time.Time) Session {
	if s.IsRunning {
		return s.Paused(now)
	}
	return s.Resumed(now)
}

// Healed anchors a running session that lost its start timestamp.
func (s Session) Healed(now time.Time) (Session, bool) {
	if s.IsRunning && s.StartTimestamp == nil {
		return s.Resumed(now), true
	}
	return s, false
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	if s.StartTimestamp != nil {
		start := *s.StartTimestamp
		s.StartTimestamp = &start
	}
	return s
}

func (s Session) SnapshotAt(now time.Time) Snapshot {
	return Snapshot{
		Subject:            s.Subject,
		TargetHours:        s.TargetHours,
		ElapsedSeconds:     s.ElapsedSeconds(now),
		IsRunning:          s.IsRunning,
		ProgressPercentage: s.ProgressPercentage(now),
		HasActiveSession:   s.HasActiveSession(),
	}
}

func Encode(s Session) ([]byte, error) {
	return json.Marshal(s)
}
