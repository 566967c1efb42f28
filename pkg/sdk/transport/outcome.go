package transport

import (
	"encoding/json"
	"fmt"
)

// Kind classifies the result of one logical send.
type Kind int

const (
	KindAccepted Kind = iota
	KindRateLimited
	KindValidation
	KindAuth
	KindServer
	KindNetwork
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindAccepted:
		return "accepted"
	case KindRateLimited:
		return "rate_limited"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Retryable reports whether a failure of this kind is worth retrying.
// Validation and auth failures never are; new attempts cannot change them.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindServer || k == KindNetwork
}

// Outcome is the classified result of one logical send, after any internal
// retries have been exhausted.
type Outcome struct {
	Kind    Kind
	Count   int // accepted-record count, set only for KindAccepted
	Message string
}

// Accepted reports whether the remote service accepted the payload.
func (o Outcome) Accepted() bool { return o.Kind == KindAccepted }

// Err returns nil for an accepted outcome and a typed *Error otherwise.
func (o Outcome) Err() error {
	if o.Accepted() {
		return nil
	}
	return &Error{Kind: o.Kind, Message: o.Message}
}

// Error is the error form of a non-accepted outcome.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// classify maps a final HTTP response onto an outcome per the fixed table:
// 200 accepted, 429 rate limited, 400 validation, 401/403 auth, >=500 server.
func classify(status int, body []byte) Outcome {
	switch {
	case status == 200:
		return Outcome{Kind: KindAccepted, Count: acceptedCount(body)}
	case status == 429:
		return Outcome{Kind: KindRateLimited, Message: errorMessage(body)}
	case status == 401 || status == 403:
		return Outcome{Kind: KindAuth, Message: errorMessage(body)}
	case status >= 500:
		return Outcome{Kind: KindServer, Message: errorMessage(body)}
	default:
		// 400 and any other unexpected client status.
		return Outcome{Kind: KindValidation, Message: errorMessage(body)}
	}
}

// acceptedCount extracts the accepted-record count from a 200 body. A
// status flag of 1 means one success; an explicit num_records_imported is
// used when present; any other body counts as 1 even for multi-event
// payloads (the remote API reports no per-event count on /track).
func acceptedCount(body []byte) int {
	var parsed struct {
		Status     *int `json:"status"`
		NumRecords *int `json:"num_records_imported"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 1
	}
	if parsed.Status != nil && *parsed.Status == 1 {
		return 1
	}
	if parsed.NumRecords != nil {
		return *parsed.NumRecords
	}
	return 1
}

// errorMessage extracts a human message from an error body, which may be
// {"error": "..."}, {"error": {"message": "..."}}, or plain text.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	return string(body)
}
