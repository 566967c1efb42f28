package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nicktill/mixgo/pkg/config"
	"github.com/nicktill/mixgo/pkg/sdk/event"
)

func TestTrackHeaders(t *testing.T) {
	h := TrackHeaders()
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.Empty(t, h.Get("Authorization"), "live tracking authenticates via the payload token")
}

func TestImportHeaders(t *testing.T) {
	sa := config.ServiceAccount{Username: "svc", Password: "hunter2", ProjectID: "p1"}
	h := ImportHeaders(sa)

	assert.Equal(t, "application/json", h.Get("Content-Type"))
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("svc:hunter2"))
	assert.Equal(t, want, h.Get("Authorization"))
}

func TestAttachTokenOverwrites(t *testing.T) {
	p := event.Payload{Event: "signup", Properties: map[string]any{
		KeyToken: "stale",
	}}

	AttachToken(&p, "fresh")
	assert.Equal(t, "fresh", p.Properties[KeyToken])
}

func TestAttachProjectIDOverwrites(t *testing.T) {
	p := event.Payload{Event: "signup", Properties: map[string]any{}}

	AttachProjectID(&p, "proj-1")
	assert.Equal(t, "proj-1", p.Properties[KeyProjectID])

	AttachProjectID(&p, "proj-2")
	assert.Equal(t, "proj-2", p.Properties[KeyProjectID])
}
