// Package envelope defines the event bus's canonical record and the single
// factory operation used to stamp every event with identity and timing
// before it enters the store or the broadcast stream.
package envelope

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the fixed literal every envelope carries. Consumers
// reject anything else.
const SchemaVersion = "1.0.0"

// Source identifies the class of producer that generated an envelope.
type Source string

const (
	SourceCLI  Source = "cli"
	SourceHook Source = "hook"
)

// Envelope is the universal event record. Immutable after construction.
type Envelope struct {
	SchemaVersion string                 `json:"schemaVersion"`
	ID            string                 `json:"id"`
	Timestamp     string                 `json:"timestamp"`
	Type          string                 `json:"type"`
	App           string                 `json:"app"`
	AppRoot       string                 `json:"appRoot"`
	Source        Source                 `json:"source"`
	CorrelationID string                 `json:"correlationId"`
	Data          map[string]interface{} `json:"data"`

	// seq is a monotonic per-process insertion counter stamped by the store
	// on Push; it never serializes, and no query or ordering path reads it.
	seq uint64
}

// Context carries the producer-supplied fields needed to stamp an envelope.
// App, AppRoot, and Source are required; CorrelationID is optional.
type Context struct {
	App           string
	AppRoot       string
	Source        Source
	CorrelationID string
}

// Seq returns the envelope's store insertion sequence number, or 0 if it
// has not yet been pushed into a store.
func (e *Envelope) Seq() uint64 {
	return e.seq
}

// SetSeq is called exactly once by the store on push.
func (e *Envelope) SetSeq(seq uint64) {
	e.seq = seq
}

// CreateEvent stamps a new envelope with a fresh id, the current UTC
// timestamp, and a correlation id (forwarded from ctx if present, else
// freshly generated). data must be a non-nil object; app and appRoot and
// source must be non-empty — callers (C3/C4) are responsible for applying
// server defaults before calling this, since a missing required context
// field is a precondition violation, not a recoverable error here.
func CreateEvent(eventType string, data map[string]interface{}, ctx Context) (*Envelope, error) {
	if eventType == "" {
		return nil, fmt.Errorf("envelope: type must not be empty")
	}
	if data == nil {
		return nil, fmt.Errorf("envelope: data must not be nil")
	}
	if ctx.App == "" || ctx.AppRoot == "" || ctx.Source == "" {
		return nil, fmt.Errorf("envelope: app, appRoot, and source are required")
	}

	correlationID := ctx.CorrelationID
	if correlationID == "" {
		correlationID = newCorrelationID()
	}

	return &Envelope{
		SchemaVersion: SchemaVersion,
		ID:            newID(),
		Timestamp:     time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Type:          eventType,
		App:           ctx.App,
		AppRoot:       ctx.AppRoot,
		Source:        ctx.Source,
		CorrelationID: correlationID,
		Data:          data,
	}, nil
}

// newID returns a short, collision-resistant-within-process identifier.
// A full UUID is more than the contract requires ("opaque short unique
// string"), so only its first 12 hex characters are kept.
func newID() string {
	return uuid.New().String()[:12]
}

// newCorrelationID returns a short hex token, at least 8 characters as
// required by the wire contract.
func newCorrelationID() string {
	return uuid.New().String()[:8]
}

// MarshalJSON and UnmarshalJSON are implemented via goccy/go-json at call
// sites (Marshal/Unmarshal below); Envelope needs no custom hooks because
// the unexported seq field is already excluded by the lowercase name.

// Validate checks that a fully-formed envelope (as opposed to one built via
// CreateEvent) satisfies every invariant in the wire contract. Used by C4's
// POST /events handler when the caller submits a complete envelope rather
// than a partial one.
func Validate(e *Envelope) error {
	if e.SchemaVersion != SchemaVersion {
		return fmt.Errorf("envelope: schemaVersion must be %q, got %q", SchemaVersion, e.SchemaVersion)
	}
	if e.ID == "" {
		return fmt.Errorf("envelope: id must not be empty")
	}
	if _, err := time.Parse("2006-01-02T15:04:05.000Z", e.Timestamp); err != nil {
		if _, err2 := time.Parse(time.RFC3339, e.Timestamp); err2 != nil {
			return fmt.Errorf("envelope: timestamp %q is not parseable", e.Timestamp)
		}
	}
	if e.Type == "" {
		return fmt.Errorf("envelope: type must not be empty")
	}
	if e.App == "" {
		return fmt.Errorf("envelope: app must not be empty")
	}
	if e.AppRoot == "" {
		return fmt.Errorf("envelope: appRoot must not be empty")
	}
	if e.Source != SourceCLI && e.Source != SourceHook {
		return fmt.Errorf("envelope: source must be %q or %q, got %q", SourceCLI, SourceHook, e.Source)
	}
	if len(e.CorrelationID) < 8 {
		return fmt.Errorf("envelope: correlationId must be at least 8 characters")
	}
	if e.Data == nil {
		return fmt.Errorf("envelope: data must be an object")
	}
	return nil
}

// Marshal serializes an envelope using the event bus's JSON codec.
func Marshal(e *Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses an envelope using the event bus's JSON codec.
func Unmarshal(b []byte, e *Envelope) error {
	return json.Unmarshal(b, e)
}
