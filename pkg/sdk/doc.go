/*
Package sdk provides the mixgo client for sending analytics events to a
Mixpanel-compatible HTTP API.

# Quick Start

	cfg, err := config.Load() // reads MIXGO_* environment variables
	if err != nil {
	    log.Fatal(err)
	}

	client, err := sdk.New(cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer client.Close(context.Background())

	// Batched (default): queues and returns immediately.
	client.Track("signup", map[string]any{
	    "distinct_id": "user-1",
	    "plan":        "pro",
	})

	// Immediate: synchronous, returns the delivery outcome.
	out, err := client.TrackImmediate(ctx, "purchase", map[string]any{
	    "distinct_id": "user-1",
	    "amount":      99.99,
	})

# Batching

Track is batched by default. Events are buffered in memory and sent when:

 1. the buffer reaches BatchSize events, OR
 2. BatchTimeout elapses after the first buffered event, OR
 3. you call client.Flush() or client.Close().

A batched send is fire-and-forget: Track returning nil means the event was
queued, and a later send failure is only observable through the logger. The
failed batch is dropped, never re-queued, so the buffer stays bounded during
an outage. Use TrackImmediate when you need delivery confirmation.

# Historical import

TrackMany sends backdated events to the /import endpoint. It requires a
service account (username, password, project id) in the configuration and
returns a configuration error without any I/O when one is missing:

	out, err := client.TrackMany(ctx, []event.Input{
	    {Name: "legacy_signup", Properties: map[string]any{
	        "distinct_id": "user-2",
	        "time":        int64(1577836800),
	    }},
	})

# Validation

Every event is validated at construction: non-empty name, a non-empty
distinct_id property, serialized size at most 1 MiB, at most 255 properties,
nesting at most 3 levels deep. Invalid events are rejected synchronously and
never buffered or sent. Batches must hold 1 to 2000 events.

# Errors and retries

Remote failures are classified into transport.Outcome kinds: accepted, rate
limited, validation, auth, server, network. Rate-limit, server and network
failures are retried inside the transport with exponential backoff and
jitter up to a bounded attempt count; auth and validation failures are
never retried.
*/
package sdk
