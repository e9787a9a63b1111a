package ratelimit

import (
	"sync"
	"time"
)

// ============================================================
// Per-process sliding-window request accounting.
//
// This store is defense in depth, not the system of record: counters
// live in memory, reset on restart, and are never shared across
// processes. A reverse proxy remains the binding authority for any
// global quota.
// ============================================================

// Class groups endpoints under a shared request budget.
type Class string

const (
	ClassAuth      Class = "auth"
	ClassAdmin     Class = "admin"
	ClassFinancial Class = "financial"
	ClassGeneral   Class = "general"
)

// attemptsClass keys the per-identity attempt history consumed by the
// risk scorer. It is internal and never matched from a path.
const attemptsClass Class = "attempts"

const attemptsWindow = 60 * time.Second

// Policy is the request budget for one class.
type Policy struct {
	Window      time.Duration
	MaxRequests int
}

// DefaultPolicies returns the per-class budgets.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassAuth:      {Window: 15 * time.Minute, MaxRequests: 20},
		ClassAdmin:     {Window: 60 * time.Second, MaxRequests: 60},
		ClassFinancial: {Window: 60 * time.Second, MaxRequests: 30},
		ClassGeneral:   {Window: 60 * time.Second, MaxRequests: 100},
	}
}

// Result is the decision for a single request. Remaining, ResetMs and
// RetryAfterSec are suitable for emission as response headers.
type Result struct {
	Allowed       bool  `json:"allowed"`
	Limit         int   `json:"limit"`
	Remaining     int   `json:"remaining"`
	ResetMs       int64 `json:"reset_ms"`
	RetryAfterSec int   `json:"retry_after_sec,omitempty"`
}

type entry struct {
	windowStart time.Time
	window      time.Duration
	count       int
}

// Store tracks request counts per (identity, class) key. Construct one
// per process with NewStore and inject it where it is needed; tests can
// build isolated stores and drive the clock themselves.
type Store struct {
	mu         sync.Mutex
	policies   map[Class]Policy
	entries    map[string]*entry
	maxEntries int
}

// gcThreshold is the tracked-key count above which Check opportunistically
// sweeps entries older than twice their own window.
const gcThreshold = 10000

// NewStore creates a store with the given per-class policies.
// Missing classes fall back to the general policy.
func NewStore(policies map[Class]Policy) *Store {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Store{
		policies:   policies,
		entries:    make(map[string]*entry),
		maxEntries: gcThreshold,
	}
}

func (s *Store) policyFor(class Class) Policy {
	if p, ok := s.policies[class]; ok {
		return p
	}
	return s.policies[ClassGeneral]
}

// Check records one request for (identity, class) and answers whether it
// is within policy. The request that would push the count past the limit
// is the one denied, and it still counts as an attempt. Check also
// advances the identity's 60s attempt history for the risk scorer.
func (s *Store) Check(identity string, class Class, now time.Time) Result {
	policy := s.policyFor(class)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bumpLocked(string(attemptsClass)+"|"+identity, attemptsWindow, now)

	if len(s.entries) > s.maxEntries {
		s.gcLocked(now)
	}

	key := string(class) + "|" + identity
	e, ok := s.entries[key]
	if !ok || now.Sub(e.windowStart) > policy.Window {
		s.entries[key] = &entry{windowStart: now, window: policy.Window, count: 1}
		return Result{
			Allowed:   true,
			Limit:     policy.MaxRequests,
			Remaining: policy.MaxRequests - 1,
			ResetMs:   policy.Window.Milliseconds(),
		}
	}

	e.count++
	elapsed := now.Sub(e.windowStart)
	resetMs := (policy.Window - elapsed).Milliseconds()

	if e.count > policy.MaxRequests {
		retry := int((policy.Window - elapsed + time.Second - 1) / time.Second)
		return Result{
			Allowed:       false,
			Limit:         policy.MaxRequests,
			Remaining:     0,
			ResetMs:       resetMs,
			RetryAfterSec: retry,
		}
	}

	return Result{
		Allowed:   true,
		Limit:     policy.MaxRequests,
		Remaining: policy.MaxRequests - e.count,
		ResetMs:   resetMs,
	}
}

// Attempts reports how many requests the identity has made in its current
// 60s attempt window. Expired windows read as zero.
func (s *Store) Attempts(identity string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[string(attemptsClass)+"|"+identity]
	if !ok || now.Sub(e.windowStart) > attemptsWindow {
		return 0
	}
	return e.count
}

// Size reports the number of tracked keys, attempt histories included.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// bumpLocked increments a raw counter entry, resetting it when its
// window has elapsed. Caller holds s.mu.
func (s *Store) bumpLocked(key string, window time.Duration, now time.Time) {
	e, ok := s.entries[key]
	if !ok || now.Sub(e.windowStart) > window {
		s.entries[key] = &entry{windowStart: now, window: window, count: 1}
		return
	}
	e.count++
}

// gcLocked drops entries whose window started more than twice their own
// duration ago. Runs inline on the check path; only triggered above the
// size threshold. Caller holds s.mu.
func (s *Store) gcLocked(now time.Time) {
	for key, e := range s.entries {
		if now.Sub(e.windowStart) > 2*e.window {
			delete(s.entries, key)
		}
	}
}
