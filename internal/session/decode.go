package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxSafeInt bounds coerced integers to what a JSON number carries exactly.
const maxSafeInt = 1<<53 - 1

// Decode reads a persisted record in either the canonical or the legacy
// shape. Fields are coerced one by one; a field of the wrong type falls back
// to its zero value instead of failing the record. The only error is a
// payload that is not JSON at all, in which case the default session is
// returned alongside it. Numbers are kept as literals so an out-of-range
// value only zeroes its own field.
func Decode(raw []byte, now time.Time) (Session, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Default(), fmt.Errorf("decode session: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Default(), errors.New("decode session: trailing data after record")
	}

	obj, _ := v.(map[string]any)
	if isCanonical(obj) {
		return decodeCanonical(obj), nil
	}
	return decodeLegacy(obj, now), nil
}

func isCanonical(obj map[string]any) bool {
	if obj == nil {
		return false
	}
	_, hasAccumulated := obj["accumulatedSeconds"]
	_, hasStart := obj["startTimestamp"]
	return hasAccumulated || hasStart
}

func decodeCanonical(obj map[string]any) Session {
	return Session{
		Subject:            toString(obj["subject"]),
		TargetHours:        toNumber(obj["targetHours"]),
		AccumulatedSeconds: toSeconds(obj["accumulatedSeconds"]),
		StartTimestamp:     toTimestamp(obj["startTimestamp"]),
		IsRunning:          toBool(obj["isRunning"]),
	}
}

// decodeLegacy upgrades the counter-based shape. A nil obj (a non-object
// payload) yields the default session.
func decodeLegacy(obj map[string]any, now time.Time) Session {
	s := Session{
		Subject:            toString(obj["subject"]),
		TargetHours:        toNumber(obj["targetHours"]),
		AccumulatedSeconds: toSeconds(obj["elapsedSeconds"]),
		IsRunning:          toBool(obj["isRunning"]),
	}
	if s.IsRunning {
		start := now.UnixMilli()
		s.StartTimestamp = &start
	}
	return s
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toNumber(v any) float64 {
	var f float64
	switch x := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			f = 1
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toSeconds(v any) int64 {
	n := math.Floor(toNumber(v))
	if n < 0 {
		return 0
	}
	if n > maxSafeInt {
		return maxSafeInt
	}
	return int64(n)
}

// toTimestamp treats anything that is not a positive millisecond count as
// "not running".
func toTimestamp(v any) *int64 {
	n := math.Floor(toNumber(v))
	if n <= 0 || n > maxSafeInt {
		return nil
	}
	ms := int64(n)
	return &ms
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case json.Number:
		return toNumber(x) != 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
		return x != ""
	}
	return false
}
