// Package websocket implements the event bus's real-time fan-out: a hub
// that tracks topic-subscribed clients and publishes stored envelopes to
// them, plus the per-connection read/write pumps that keep a client alive.
//
// A client is attached to exactly one topic at upgrade time — TopicAll by
// default, or a specific events.<type> topic if the upgrade request asked
// for one — so Publish never delivers the same envelope twice to the same
// subscriber.
package websocket
