// Package provider abstracts the three mail operations the triage pipeline
// needs, with one adapter per mail API. Adapters are selected by the queue a
// job arrived on and are never mixed within one job.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mailtriage/internal/classify"
	"mailtriage/internal/compose"
	"mailtriage/internal/message"
)

// Gateway translates normalized triage operations into provider-specific
// HTTP calls. The bearer token is resolved by the caller from the credential
// store and passed per call.
type Gateway interface {
	// Name returns the provider key ("gmail", "outlook").
	Name() string

	// FetchMessage fetches and decodes one message into the normalized
	// shape. Missing plain-text parts yield an empty BodyText, not an error.
	FetchMessage(ctx context.Context, tok, identity, messageID string) (*message.Message, error)

	// SendReply serializes the draft into the provider's transport envelope
	// and sends it. Returns the provider-assigned id of the sent message,
	// which may be empty for providers that do not report one.
	SendReply(ctx context.Context, tok, identity, recipient string, draft *compose.ReplyDraft) (string, error)

	// ApplyLabel tags a message with the provider label mapped from the
	// classification. An unmapped classification is a programming error and
	// fails the job without retry.
	ApplyLabel(ctx context.Context, tok, identity, messageID string, label classify.Label) error

	// ListMessages returns the provider's raw message-list envelope, used by
	// the synchronous mail proxy routes.
	ListMessages(ctx context.Context, tok, identity string) (json.RawMessage, error)
}

// APIError is a non-2xx response from a provider API. It keeps the status
// code so the error classifier can separate auth failures (fatal for the
// job) from transient upstream trouble (left to queue redelivery).
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (HTTP %d): %s", e.Provider, e.Status, e.Body)
}

func (e *APIError) HTTPStatus() int { return e.Status }

// DoJSON performs one bearer-authorized JSON request and decodes the
// response into out (skipped when out is nil or the body is empty).
func DoJSON(ctx context.Context, client *http.Client, providerName, method, url, tok string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{Provider: providerName, Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
