// Package enrichment is the boundary between a raw hook payload and a
// stored envelope: it applies the stop-recursion guard, maps kebab-case
// hook names to canonical types, and normalizes fields per type.
package enrichment
