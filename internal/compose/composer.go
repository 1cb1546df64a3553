package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mailtriage/internal/classify"
	"mailtriage/pkg/metrics"
)

// ErrComposeFailed is returned when reply generation fails before any send
// attempt is made.
var ErrComposeFailed = errors.New("reply composition failed")

// Mode selects between canned reply templates and model-generated text.
// It is fixed per process via configuration, never per job.
type Mode string

const (
	ModeTemplated Mode = "templated"
	ModeGenerated Mode = "generated"
)

// ParseMode maps a config string onto a Mode, defaulting to templated.
func ParseMode(s string) Mode {
	if s == string(ModeGenerated) {
		return ModeGenerated
	}
	return ModeTemplated
}

// ReplyDraft is the composed reply, consumed once by the gateway's send
// operation and never persisted.
type ReplyDraft struct {
	Subject  string
	HTMLBody string
}

// htmlWrapper is the fixed fragment replies are embedded into.
const htmlWrapper = `<div style="background-color: #f0f0f0; padding: 20px; border-radius: 10px; text-align: center;"><p>%s</p></div>`

// templates are the canned reply bodies per classification.
var templates = map[classify.Label]string{
	classify.LabelInterested:      "Thank you for expressing interest in our company. We are looking forward to connecting with you. Have a great day!",
	classify.LabelNotInterested:   "Thank you for your time. Could you please provide us with some feedback.",
	classify.LabelMoreInformation: "Thank you for expressing interest in our company. We are looking forward to connecting with you and providing you with more information. Have a great day!",
}

// generationPrompts ask the model for a ~200 word reply conditioned on the
// classification.
var generationPrompts = map[classify.Label]string{
	classify.LabelInterested:      "The email sender is interested. Draft a reply thanking them and asking if they are willing to attend a demo call by suggesting a time. Write a small text on the above request in around 200 words.",
	classify.LabelNotInterested:   "The email sender is not interested. Draft a reply thanking them for their time and asking for feedback and suggestions. Write a small text on the above request in around 200 words.",
	classify.LabelMoreInformation: "The email sender needs more information. Draft a reply expressing gratitude for their interest and asking what specific information they are looking for. Write a small text on the above request in around 200 words.",
}

// Composer produces a ReplyDraft for a classification. The mode is injected
// at construction so concurrent jobs can never observe a half-toggled flag.
type Composer struct {
	client classify.CompletionClient
	mode   Mode
}

func NewComposer(client classify.CompletionClient, mode Mode) *Composer {
	return &Composer{client: client, mode: mode}
}

func (c *Composer) Mode() Mode {
	return c.mode
}

// Compose returns the reply draft for the given label. Templated mode is
// deterministic and makes no external call.
func (c *Composer) Compose(ctx context.Context, label classify.Label) (*ReplyDraft, error) {
	body, ok := templates[label]
	if !ok {
		return nil, fmt.Errorf("%w: no template for label %q", ErrComposeFailed, label)
	}

	if c.mode == ModeGenerated {
		start := time.Now()
		generated, err := c.client.Complete(ctx, generationPrompts[label])
		if err != nil {
			metrics.RecordLLMCallLatency("compose", "error", time.Since(start))
			return nil, fmt.Errorf("%w: %v", ErrComposeFailed, err)
		}
		metrics.RecordLLMCallLatency("compose", "ok", time.Since(start))
		if generated != "" {
			body = generated
		}
	}

	return &ReplyDraft{
		Subject:  string(label),
		HTMLBody: fmt.Sprintf(htmlWrapper, body),
	}, nil
}
