package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailtriage/internal/classify"
	"mailtriage/internal/compose"
	"mailtriage/internal/provider"
)

func TestFetchMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/alice@example.com/messages/msg-1", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"snippet": "quick question",
			"payload": map[string]any{
				"mimeType": "text/plain",
				"headers":  []map[string]string{{"name": "Subject", "value": "Pricing"}},
				"body":     map[string]string{"data": b64url("what does it cost?")},
			},
		})
	}))
	defer srv.Close()

	g := NewWithBaseURL(srv.URL, srv.Client())
	msg, err := g.FetchMessage(context.Background(), "tok-1", "alice@example.com", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "Pricing", msg.Subject)
	assert.Equal(t, "quick question", msg.Snippet)
	assert.Equal(t, "what does it cost?", msg.BodyText)
}

func TestSendReply(t *testing.T) {
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/alice@example.com/messages/send", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotRaw = body["raw"]

		json.NewEncoder(w).Encode(map[string]string{"id": "sent-42"})
	}))
	defer srv.Close()

	g := NewWithBaseURL(srv.URL, srv.Client())
	draft := &compose.ReplyDraft{Subject: "Interested", HTMLBody: "<div><p>thanks</p></div>"}

	id, err := g.SendReply(context.Background(), "tok-1", "alice@example.com", "bob@example.com", draft)
	require.NoError(t, err)
	assert.Equal(t, "sent-42", id)

	// raw 字段必须是 base64url 编码的完整 MIME
	decoded, err := base64.RawURLEncoding.DecodeString(gotRaw)
	require.NoError(t, err)
	mime := string(decoded)
	assert.Contains(t, mime, "From: alice@example.com\r\n")
	assert.Contains(t, mime, "To: bob@example.com\r\n")
	assert.Contains(t, mime, "Subject: Interested\r\n")
	assert.True(t, strings.HasSuffix(mime, "\r\n<div><p>thanks</p></div>"))
}

func TestApplyLabelMapping(t *testing.T) {
	tests := []struct {
		label   classify.Label
		labelID string
	}{
		{classify.LabelInterested, "Label_1"},
		{classify.LabelNotInterested, "Label_2"},
		{classify.LabelMoreInformation, "Label_3"},
	}

	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/users/alice@example.com/messages/msg-1/modify", r.URL.Path)

				var body map[string][]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, []string{tt.labelID}, body["addLabelIds"])

				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			g := NewWithBaseURL(srv.URL, srv.Client())
			err := g.ApplyLabel(context.Background(), "tok-1", "alice@example.com", "msg-1", tt.label)
			assert.NoError(t, err)
		})
	}
}

func TestApplyLabelUnmappedClassification(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	g := NewWithBaseURL(srv.URL, srv.Client())
	err := g.ApplyLabel(context.Background(), "tok-1", "alice@example.com", "msg-1", classify.Label("Spam"))
	require.Error(t, err)
	assert.False(t, called, "unmapped classification must fail before any HTTP call")
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer srv.Close()

	g := NewWithBaseURL(srv.URL, srv.Client())
	_, err := g.FetchMessage(context.Background(), "stale", "alice@example.com", "msg-1")
	require.Error(t, err)

	var apiErr *provider.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus())
	assert.Equal(t, "gmail", apiErr.Provider)
}
