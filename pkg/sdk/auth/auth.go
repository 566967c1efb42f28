// Package auth shapes credentials onto outgoing payloads and headers. It is
// the only place credentials are injected, and it runs exactly once per
// payload, immediately before transport, so buffered events always go out
// with the current token.
package auth

import (
	"encoding/base64"
	"net/http"

	"github.com/nicktill/mixgo/pkg/config"
	"github.com/nicktill/mixgo/pkg/sdk/event"
)

// Credential keys written into the payload's properties bag.
const (
	KeyToken     = "token"
	KeyProjectID = "project_id"
)

// TrackHeaders returns the headers for the live-tracking endpoint. The
// endpoint authenticates via the token embedded in the payload, so there is
// no Authorization header here.
func TrackHeaders() http.Header {
	h := make(http.Header, 2)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}

// ImportHeaders returns the headers for the import endpoint, including the
// Basic Authorization header built from the service account.
func ImportHeaders(sa config.ServiceAccount) http.Header {
	h := TrackHeaders()
	creds := base64.StdEncoding.EncodeToString([]byte(sa.Username + ":" + sa.Password))
	h.Set("Authorization", "Basic "+creds)
	return h
}

// AttachToken sets the project token in the payload's properties bag,
// overwriting any prior value.
func AttachToken(p *event.Payload, token string) {
	p.Properties[KeyToken] = token
}

// AttachProjectID sets the account-scoping project id in the payload's
// properties bag, overwriting any prior value.
func AttachProjectID(p *event.Payload, projectID string) {
	p.Properties[KeyProjectID] = projectID
}
