package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailtriage/internal/classify"
	"mailtriage/internal/compose"
	"mailtriage/internal/message"
	"mailtriage/internal/provider"
	"mailtriage/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	listRaw json.RawMessage
	listErr error
	msg     *message.Message
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) FetchMessage(ctx context.Context, tok, identity, messageID string) (*message.Message, error) {
	return f.msg, nil
}

func (f *fakeGateway) SendReply(ctx context.Context, tok, identity, recipient string, draft *compose.ReplyDraft) (string, error) {
	return "", errors.New("unused")
}

func (f *fakeGateway) ApplyLabel(ctx context.Context, tok, identity, messageID string, label classify.Label) error {
	return errors.New("unused")
}

func (f *fakeGateway) ListMessages(ctx context.Context, tok, identity string) (json.RawMessage, error) {
	return f.listRaw, f.listErr
}

func performJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEnqueueUnknownProvider(t *testing.T) {
	r := gin.New()
	h := NewTriageHandler(nil, zap.NewNop())
	r.POST("/triage/:provider", h.Enqueue)

	w := performJSON(r, http.MethodPost, "/triage/yandex", `{"identity":"a","recipient":"b","message_id":"c"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnqueueValidation(t *testing.T) {
	r := gin.New()
	h := NewTriageHandler(nil, zap.NewNop())
	r.POST("/triage/:provider", h.Enqueue)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing identity", `{"recipient":"bob@example.com","message_id":"msg-1"}`},
		{"missing recipient", `{"identity":"alice@example.com","message_id":"msg-1"}`},
		{"missing message_id", `{"identity":"alice@example.com","recipient":"bob@example.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(r, http.MethodPost, "/triage/gmail", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTokenUpsert(t *testing.T) {
	store := token.NewMemoryStore()
	r := gin.New()
	h := NewTokenHandler(store, zap.NewNop())
	r.PUT("/tokens/:identity", h.Upsert)

	w := performJSON(r, http.MethodPut, "/tokens/alice@example.com", `{"token":"tok-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	got, err := store.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)
}

func TestTokenUpsertValidation(t *testing.T) {
	r := gin.New()
	h := NewTokenHandler(token.NewMemoryStore(), zap.NewNop())
	r.PUT("/tokens/:identity", h.Upsert)

	w := performJSON(r, http.MethodPut, "/tokens/alice@example.com", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func newMailRouter(gw provider.Gateway, store token.Store) *gin.Engine {
	r := gin.New()
	h := NewMailHandler(map[string]provider.Gateway{"gmail": gw}, store, zap.NewNop())
	r.GET("/mail/:provider/list/:identity", h.List)
	r.GET("/mail/:provider/read/:identity/:id", h.Read)
	return r
}

func TestMailListPassesRawEnvelope(t *testing.T) {
	store := token.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "alice@example.com", "tok-1"))

	gw := &fakeGateway{listRaw: json.RawMessage(`{"messages":[{"id":"m1"}]}`)}
	r := newMailRouter(gw, store)

	w := performJSON(r, http.MethodGet, "/mail/gmail/list/alice@example.com", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[{"id":"m1"}]}`, w.Body.String())
}

func TestMailListMissingToken(t *testing.T) {
	r := newMailRouter(&fakeGateway{}, token.NewMemoryStore())

	w := performJSON(r, http.MethodGet, "/mail/gmail/list/alice@example.com", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMailListUnknownProvider(t *testing.T) {
	r := newMailRouter(&fakeGateway{}, token.NewMemoryStore())

	w := performJSON(r, http.MethodGet, "/mail/yandex/list/alice@example.com", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMailListUpstreamFailure(t *testing.T) {
	store := token.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "alice@example.com", "tok-1"))

	gw := &fakeGateway{listErr: errors.New("upstream down")}
	r := newMailRouter(gw, store)

	w := performJSON(r, http.MethodGet, "/mail/gmail/list/alice@example.com", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestMailRead(t *testing.T) {
	store := token.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "alice@example.com", "tok-1"))

	gw := &fakeGateway{msg: &message.Message{Subject: "hello", Snippet: "snip", BodyText: "body"}}
	r := newMailRouter(gw, store)

	w := performJSON(r, http.MethodGet, "/mail/gmail/read/alice@example.com/msg-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"hello","snippet":"snip","body_text":"body"}`, w.Body.String())
}
