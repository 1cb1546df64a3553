// Package gmail implements the provider gateway against the Gmail REST API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailtriage/internal/classify"
	"mailtriage/internal/compose"
	"mailtriage/internal/message"
	"mailtriage/internal/provider"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// labelIDs maps each classification to its fixed Gmail label id.
var labelIDs = map[classify.Label]string{
	classify.LabelInterested:      "Label_1",
	classify.LabelNotInterested:   "Label_2",
	classify.LabelMoreInformation: "Label_3",
}

type Gateway struct {
	baseURL    string
	httpClient *http.Client
}

func New() *Gateway {
	return &Gateway{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithBaseURL is used by tests to point the gateway at a fake server.
func NewWithBaseURL(baseURL string, client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Gateway{baseURL: baseURL, httpClient: client}
}

func (g *Gateway) Name() string { return "gmail" }

func (g *Gateway) userURL(identity, suffix string) string {
	return fmt.Sprintf("%s/users/%s/%s", g.baseURL, url.PathEscape(identity), suffix)
}

func (g *Gateway) FetchMessage(ctx context.Context, tok, identity, messageID string) (*message.Message, error) {
	var envelope gmailMessage
	u := g.userURL(identity, "messages/"+url.PathEscape(messageID))
	if err := provider.DoJSON(ctx, g.httpClient, "gmail", http.MethodGet, u, tok, nil, &envelope); err != nil {
		return nil, err
	}
	return decodeMessage(&envelope), nil
}

func (g *Gateway) SendReply(ctx context.Context, tok, identity, recipient string, draft *compose.ReplyDraft) (string, error) {
	raw := buildRawMIME(identity, recipient, draft)

	reqBody := map[string]string{
		// Gmail 要求 base64url 编码的 raw MIME
		"raw": base64.RawURLEncoding.EncodeToString([]byte(raw)),
	}

	var resp struct {
		ID string `json:"id"`
	}
	u := g.userURL(identity, "messages/send")
	if err := provider.DoJSON(ctx, g.httpClient, "gmail", http.MethodPost, u, tok, reqBody, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (g *Gateway) ApplyLabel(ctx context.Context, tok, identity, messageID string, label classify.Label) error {
	labelID, ok := labelIDs[label]
	if !ok {
		return fmt.Errorf("gmail: no label id mapped for classification %q", label)
	}

	reqBody := map[string][]string{
		"addLabelIds": {labelID},
	}
	u := g.userURL(identity, "messages/"+url.PathEscape(messageID)+"/modify")
	return provider.DoJSON(ctx, g.httpClient, "gmail", http.MethodPost, u, tok, reqBody, nil)
}

func (g *Gateway) ListMessages(ctx context.Context, tok, identity string) (json.RawMessage, error) {
	var raw json.RawMessage
	u := g.userURL(identity, "messages")
	if err := provider.DoJSON(ctx, g.httpClient, "gmail", http.MethodGet, u, tok, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// buildRawMIME assembles the transport envelope for messages/send.
func buildRawMIME(from, to string, draft *compose.ReplyDraft) string {
	return strings.Join([]string{
		"Content-type: text/html;charset=iso-8859-1",
		"MIME-Version: 1.0",
		"From: " + from,
		"To: " + to,
		"Subject: " + draft.Subject,
		"",
		draft.HTMLBody,
	}, "\r\n")
}
