// Package envelope is the event bus's data contract: one struct, one
// construction path, stamped once and never mutated afterward.
package envelope
