// Package eventstore holds the event bus's recent history: a fixed-capacity
// ring buffer backing /events and /health, with an optional rotating JSONL
// journal for durability across restarts. Persistence failures never
// propagate to the ingestion path — they are counted and rate-limited in
// the log instead.
package eventstore
