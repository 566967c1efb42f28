// Command example demonstrates the client against a local stub server
// (see cmd/stubserver). Run the stub first, then:
//
//	MIXGO_TOKEN=demo MIXGO_BASE_URL=http://localhost:8080 go run ./cmd/example
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nicktill/mixgo/pkg/config"
	"github.com/nicktill/mixgo/pkg/sdk"
	"github.com/nicktill/mixgo/pkg/sdk/event"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client, err := sdk.New(cfg)
	if err != nil {
		log.Fatalf("client: %v", err)
	}
	ctx := context.Background()
	defer client.Close(ctx)

	// Batched path: queued, delivered on threshold/timer/flush.
	for i := 0; i < 3; i++ {
		err := client.Track("page_view", map[string]any{
			"distinct_id": fmt.Sprintf("demo-user-%d", i),
			"path":        "/pricing",
		})
		if err != nil {
			log.Fatalf("track: %v", err)
		}
	}
	fmt.Printf("queued %d events\n", client.Pending())
	fmt.Printf("flushed %d events\n", client.Flush(ctx))

	// Immediate path: synchronous delivery outcome.
	out, err := client.TrackImmediate(ctx, "purchase", map[string]any{
		"distinct_id": "demo-user-0",
		"amount":      99.99,
	})
	if err != nil {
		log.Fatalf("track immediate: %v", err)
	}
	fmt.Printf("immediate send accepted, count=%d\n", out.Count)

	// Historical import needs a service account; skip quietly when absent.
	if cfg.ServiceAccount.Complete() {
		out, err := client.TrackMany(ctx, []event.Input{
			{Name: "legacy_signup", Properties: map[string]any{
				"distinct_id": "demo-user-1",
				"time":        time.Now().AddDate(-1, 0, 0),
			}},
		})
		if err != nil {
			log.Fatalf("track many: %v", err)
		}
		fmt.Printf("imported %d records\n", out.Count)
	}
}
