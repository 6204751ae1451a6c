package models

import "fmt"

// Kind identifies the category of a pipeline error without requiring
// callers to string-match on Error().
type Kind string

const (
	KindRobotsBlocked      Kind = "robots_blocked"
	KindHostCircuitOpen    Kind = "host_circuit_open"
	KindRateLimited        Kind = "rate_limited"
	KindParse              Kind = "parse"
	KindShortContent       Kind = "short_content"
	KindDuplicate          Kind = "duplicate"
	KindInsufficientSample Kind = "insufficient_sample"
	KindStore              Kind = "store"
	KindAdapter            Kind = "adapter"
)

// RobotsBlockedError reports that robots.txt disallows fetching a URL.
type RobotsBlockedError struct {
	URL string
}

func (e *RobotsBlockedError) Error() string { return fmt.Sprintf("robots.txt blocks %s", e.URL) }
func (e *RobotsBlockedError) Kind() string  { return string(KindRobotsBlocked) }

// HostCircuitOpenError reports that a host has exceeded its consecutive
// failure budget and is being skipped.
type HostCircuitOpenError struct {
	Host string
}

func (e *HostCircuitOpenError) Error() string {
	return fmt.Sprintf("host %s has too many consecutive failures", e.Host)
}
func (e *HostCircuitOpenError) Kind() string { return string(KindHostCircuitOpen) }

// RateLimitedError reports a 429 response that exhausted its retry budget.
type RateLimitedError struct {
	URL string
}

func (e *RateLimitedError) Error() string { return fmt.Sprintf("rate limited fetching %s", e.URL) }
func (e *RateLimitedError) Kind() string  { return string(KindRateLimited) }

// ParseError wraps a failure to parse a fetched page into structured data.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.URL, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }
func (e *ParseError) Kind() string  { return string(KindParse) }

// ShortContentError reports content below the minimum usable length.
type ShortContentError struct {
	URL    string
	Length int
}

func (e *ShortContentError) Error() string {
	return fmt.Sprintf("content too short (%d bytes) at %s", e.Length, e.URL)
}
func (e *ShortContentError) Kind() string { return string(KindShortContent) }

// DuplicateError reports that a URL or its content hash was already seen.
type DuplicateError struct {
	URL string
}

func (e *DuplicateError) Error() string { return fmt.Sprintf("duplicate: %s", e.URL) }
func (e *DuplicateError) Kind() string  { return string(KindDuplicate) }

// InsufficientSampleError reports that a company has too few experiences to
// support a reliable insight.
type InsufficientSampleError struct {
	CompanyID string
	Count     int
	Minimum   int
}

func (e *InsufficientSampleError) Error() string {
	return fmt.Sprintf("company %s has %d experiences, need at least %d", e.CompanyID, e.Count, e.Minimum)
}
func (e *InsufficientSampleError) Kind() string { return string(KindInsufficientSample) }

// StoreError wraps a persistence gateway failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
func (e *StoreError) Kind() string  { return string(KindStore) }

// AdapterError wraps a source-adapter-specific failure (discovery or
// extraction).
type AdapterError struct {
	Platform string
	Op       string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s %s: %v", e.Platform, e.Op, e.Err)
}
func (e *AdapterError) Unwrap() error { return e.Err }
func (e *AdapterError) Kind() string  { return string(KindAdapter) }

// Kinded is implemented by every typed error above.
type Kinded interface {
	error
	Kind() string
}
