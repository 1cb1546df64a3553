package classify

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"mailtriage/internal/message"
	"mailtriage/pkg/circuitbreaker"
	"mailtriage/pkg/metrics"
)

// ErrClassificationFailed is returned when the model answer is empty or
// unusable. The pipeline fails the job instead of silently defaulting.
var ErrClassificationFailed = errors.New("classification failed")

// maxPromptChars bounds how much message text goes into the prompt.
const maxPromptChars = 5000

const promptTemplate = "Based on the text, give a one-word answer, and categorize the text " +
	"based on the content and assign a label from the given options - " +
	"Interested, Not Interested, More information. Text is: %s"

// Classifier assigns one intent Label per message via a single
// chat-completion call.
type Classifier struct {
	client  CompletionClient
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClassifier(client CompletionClient, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Classifier {
	return &Classifier{
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

// Classify builds a bounded prompt from subject+snippet+body and maps the
// model's free-text answer onto the closed label set.
func (c *Classifier) Classify(ctx context.Context, msg *message.Message) (Label, error) {
	text := msg.Subject + " " + msg.Snippet + " " + msg.BodyText
	if len(text) > maxPromptChars {
		cut := maxPromptChars
		// 不能把多字节字符切成两半
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	prompt := fmt.Sprintf(promptTemplate, text)

	var answer string
	start := time.Now()
	err := c.breaker.Execute(func() error {
		var callErr error
		answer, callErr = c.client.Complete(ctx, prompt)
		return callErr
	})
	if err != nil {
		metrics.RecordLLMCallLatency("classify", "error", time.Since(start))
		return "", fmt.Errorf("classify completion: %w", err)
	}
	metrics.RecordLLMCallLatency("classify", "ok", time.Since(start))

	label, ok := ParseAnswer(answer)
	if !ok {
		c.logger.Warn("Model returned empty answer", zap.String("answer", answer))
		return "", ErrClassificationFailed
	}

	c.logger.Debug("Message classified",
		zap.String("answer", answer),
		zap.String("label", string(label)),
	)
	return label, nil
}
