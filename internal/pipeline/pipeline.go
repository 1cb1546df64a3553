// Package pipeline drives one triage job through its fixed stage sequence:
// resolve token, fetch, classify, compose, send, label. One generic
// implementation serves every provider; the gateway is the only
// provider-specific part.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailtriage/contracts/mq"
	"mailtriage/internal/classify"
	"mailtriage/internal/compose"
	"mailtriage/internal/message"
	"mailtriage/internal/provider"
	"mailtriage/internal/token"
	"mailtriage/pkg/logger"
	"mailtriage/pkg/metrics"
)

// Result is the terminal record of a completed job.
type Result struct {
	Label classify.Label
	// SentMessageID is the provider-assigned id of the reply, when the
	// provider reports one.
	SentMessageID string
	// LabeledMessageID is the message the label landed on: the sent reply
	// when the provider returned its id, otherwise the original message.
	LabeledMessageID string
}

// PartialSuccessError marks the send-succeeded-label-failed outcome. The
// reply already reached a real mailbox, so the job must not be redelivered;
// it is reported distinctly from total failure.
type PartialSuccessError struct {
	SentMessageID string
	Err           error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("reply sent (id %q) but labeling failed: %v", e.SentMessageID, e.Err)
}

func (e *PartialSuccessError) Unwrap() error { return e.Err }

// Pipeline executes triage jobs against one provider gateway. Stages run
// strictly in order; a failed stage stops the job, and no stage is ever
// skipped or compensated.
type Pipeline struct {
	gateway    provider.Gateway
	tokens     token.Store
	classifier *classify.Classifier
	composer   *compose.Composer
	logger     *zap.Logger
}

func New(
	gateway provider.Gateway,
	tokens token.Store,
	classifier *classify.Classifier,
	composer *compose.Composer,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		gateway:    gateway,
		tokens:     tokens,
		classifier: classifier,
		composer:   composer,
		logger:     log,
	}
}

// Run processes one job to a terminal state. The error is nil only for full
// completion; callers separate PartialSuccessError and token.ErrCredentialMissing
// from transient provider failures when deciding redelivery.
func (p *Pipeline) Run(ctx context.Context, job mq.TriageJobPayload) (*Result, error) {
	log := logger.WithTrace(ctx, p.logger).With(
		zap.String("provider", p.gateway.Name()),
		zap.String("identity", job.Identity),
		zap.String("message_id", job.MessageID),
	)

	// (1) token 解析：没有 token 直接失败，不触发任何 provider 调用
	tok, err := p.tokens.Get(ctx, job.Identity)
	if err != nil {
		log.Warn("Token resolution failed", zap.Error(err))
		return nil, fmt.Errorf("resolve token for %s: %w", job.Identity, err)
	}

	// (2) fetch
	msg, err := p.stageFetch(ctx, tok, job)
	if err != nil {
		log.Error("Fetch stage failed", zap.Error(err))
		return nil, err
	}
	if msg.BodyText == "" {
		// 没有纯文本正文也继续：分类退化为只用 subject + snippet
		log.Debug("Message has no plain-text body, proceeding with subject/snippet")
	}

	// (3) classify
	start := time.Now()
	label, err := p.classifier.Classify(ctx, msg)
	metrics.RecordPipelineStage(p.gateway.Name(), "classify", time.Since(start))
	if err != nil {
		log.Error("Classify stage failed", zap.Error(err))
		return nil, err
	}
	log.Info("Message classified", zap.String("label", string(label)))

	// (4) compose
	start = time.Now()
	draft, err := p.composer.Compose(ctx, label)
	metrics.RecordPipelineStage(p.gateway.Name(), "compose", time.Since(start))
	if err != nil {
		log.Error("Compose stage failed", zap.Error(err))
		return nil, err
	}

	// (5) send
	start = time.Now()
	sentID, err := p.gateway.SendReply(ctx, tok, job.Identity, job.Recipient, draft)
	metrics.RecordPipelineStage(p.gateway.Name(), "send", time.Since(start))
	if err != nil {
		log.Error("Send stage failed", zap.Error(err))
		return nil, fmt.Errorf("send reply: %w", err)
	}
	log.Info("Reply sent",
		zap.String("recipient", job.Recipient),
		zap.String("sent_message_id", sentID),
	)

	// (6) label：provider 没回 id 时回落到原始邮件
	labelTarget := sentID
	if labelTarget == "" {
		labelTarget = job.MessageID
	}

	start = time.Now()
	err = p.gateway.ApplyLabel(ctx, tok, job.Identity, labelTarget, label)
	metrics.RecordPipelineStage(p.gateway.Name(), "label", time.Since(start))
	if err != nil {
		// 回复已经发出去了：部分成功，单独上报，绝不能重投
		log.Error("Label stage failed after successful send",
			zap.String("sent_message_id", sentID),
			zap.Error(err),
		)
		return nil, &PartialSuccessError{SentMessageID: sentID, Err: err}
	}

	log.Info("Job completed",
		zap.String("label", string(label)),
		zap.String("labeled_message_id", labelTarget),
	)

	return &Result{
		Label:            label,
		SentMessageID:    sentID,
		LabeledMessageID: labelTarget,
	}, nil
}

func (p *Pipeline) stageFetch(ctx context.Context, tok string, job mq.TriageJobPayload) (*message.Message, error) {
	start := time.Now()
	msg, err := p.gateway.FetchMessage(ctx, tok, job.Identity, job.MessageID)
	metrics.RecordPipelineStage(p.gateway.Name(), "fetch", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", job.MessageID, err)
	}
	return msg, nil
}
