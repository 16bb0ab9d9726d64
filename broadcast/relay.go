package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	relayStream = "scoring.events"

	// Keep the stream bounded; observers that need history are out of scope.
	relayMaxLen = 10000
)

// Relay bridges the local hub to sibling instances through a Redis stream.
// Every event published locally is also appended to the stream; a consumer
// goroutine feeds events appended by other instances into the local hub, so
// an observer can subscribe on any instance. With no Redis configured the
// hub alone serves single-instance deployments.
type Relay struct {
	hub    *Hub
	client *redis.Client
	origin string // this instance's id, used to skip our own entries
}

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	MatchID string          `json:"match_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewRelay creates a relay around the hub for this instance.
func NewRelay(hub *Hub, client *redis.Client, origin string) *Relay {
	return &Relay{hub: hub, client: client, origin: origin}
}

// Publish delivers the event locally and mirrors it to the stream. The
// mirroring is fire-and-forget: a Redis hiccup never delays or fails the
// scoring operation that produced the event.
func (r *Relay) Publish(e Event) {
	r.hub.Publish(e)

	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("⚠️  relay: failed to encode %s: %v", e.EventName(), err)
		return
	}
	env := relayEnvelope{
		Origin:  r.origin,
		MatchID: e.Room(),
		Event:   e.EventName(),
		Payload: payload,
	}
	body, _ := json.Marshal(env)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: relayStream,
			MaxLen: relayMaxLen,
			Approx: true,
			Values: map[string]interface{}{"envelope": string(body)},
		}).Err()
		if err != nil {
			log.Printf("⚠️  relay: publish to %s failed: %v", relayStream, err)
		}
	}()
}

// Consume tails the stream and forwards events from other instances into the
// local hub. Blocks until the context is cancelled.
func (r *Relay) Consume(ctx context.Context) {
	log.Printf("✅ Relay consumer started (origin %s)", r.origin)

	lastID := "$" // live tail only — no replay of past events
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{relayStream, lastID},
			Count:   100,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("⚠️  relay: read from %s failed: %v", relayStream, err)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				raw, ok := msg.Values["envelope"].(string)
				if !ok {
					continue
				}
				var env relayEnvelope
				if err := json.Unmarshal([]byte(raw), &env); err != nil {
					log.Printf("⚠️  relay: bad envelope %s: %v", msg.ID, err)
					continue
				}
				if env.Origin == r.origin {
					continue
				}
				r.hub.Forward(env.MatchID, env.Event, env.Payload)
			}
		}
	}
}
