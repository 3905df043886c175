// Package types holds the wire-level shapes shared by the engine's event
// subscribers.
package types

// Event is the flattened form of an engine event: a type tag plus string
// attributes. Amounts are decimal strings and timestamps are unix seconds,
// so the payload serialises losslessly regardless of magnitude.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
