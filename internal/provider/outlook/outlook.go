// Package outlook implements the provider gateway against the Microsoft
// Graph mail API.
package outlook

import (
	"context"
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

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// categories maps each classification to the fixed Graph category name
// applied to the message. Graph has no numeric label ids; categories are the
// labeling surface.
var categories = map[classify.Label]string{
	classify.LabelInterested:      "Interested",
	classify.LabelNotInterested:   "Not Interested",
	classify.LabelMoreInformation: "More Information",
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

func (g *Gateway) Name() string { return "outlook" }

// graphMessage is the messages/{id} envelope reduced to the decoded fields.
type graphMessage struct {
	Subject     string `json:"subject"`
	BodyPreview string `json:"bodyPreview"`
	Body        struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

func (g *Gateway) FetchMessage(ctx context.Context, tok, identity, messageID string) (*message.Message, error) {
	var envelope graphMessage
	u := g.baseURL + "/me/messages/" + url.PathEscape(messageID)
	if err := provider.DoJSON(ctx, g.httpClient, "outlook", http.MethodGet, u, tok, nil, &envelope); err != nil {
		return nil, err
	}

	// Graph 返回的 body 可能是 HTML；只有纯文本内容才进 BodyText
	var bodyText string
	if strings.EqualFold(envelope.Body.ContentType, "text") {
		bodyText = envelope.Body.Content
	}

	return &message.Message{
		Subject:  envelope.Subject,
		Snippet:  envelope.BodyPreview,
		BodyText: bodyText,
	}, nil
}

type sendMailRequest struct {
	Message sendMailMessage `json:"message"`
}

type sendMailMessage struct {
	Subject      string      `json:"subject"`
	Body         messageBody `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// SendReply posts the structured sendMail envelope. Graph acknowledges with
// 202 and no message id, so the returned id is empty and labeling falls back
// to the original message.
func (g *Gateway) SendReply(ctx context.Context, tok, identity, rcpt string, draft *compose.ReplyDraft) (string, error) {
	reqBody := sendMailRequest{
		Message: sendMailMessage{
			Subject: draft.Subject,
			Body: messageBody{
				ContentType: "html",
				Content:     draft.HTMLBody,
			},
			ToRecipients: []recipient{
				{EmailAddress: emailAddress{Address: rcpt}},
			},
		},
	}

	u := g.baseURL + "/me/sendMail"
	if err := provider.DoJSON(ctx, g.httpClient, "outlook", http.MethodPost, u, tok, reqBody, nil); err != nil {
		return "", err
	}
	return "", nil
}

func (g *Gateway) ApplyLabel(ctx context.Context, tok, identity, messageID string, label classify.Label) error {
	category, ok := categories[label]
	if !ok {
		return fmt.Errorf("outlook: no category mapped for classification %q", label)
	}

	reqBody := map[string][]string{
		"categories": {category},
	}
	u := g.baseURL + "/me/messages/" + url.PathEscape(messageID)
	return provider.DoJSON(ctx, g.httpClient, "outlook", http.MethodPatch, u, tok, reqBody, nil)
}

func (g *Gateway) ListMessages(ctx context.Context, tok, identity string) (json.RawMessage, error) {
	var raw json.RawMessage
	u := g.baseURL + "/me/messages"
	if err := provider.DoJSON(ctx, g.httpClient, "outlook", http.MethodGet, u, tok, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
