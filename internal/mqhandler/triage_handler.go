package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	contracts "mailtriage/contracts/mq"
	"mailtriage/internal/pipeline"
	"mailtriage/internal/token"
	"mailtriage/pkg/metrics"
	"mailtriage/pkg/mq"
	"mailtriage/pkg/util"
)

// TriageHandler consumes triage jobs from one provider queue, runs the
// pipeline, and translates pipeline outcomes into ack/nack/DLQ decisions.
// Returning nil acks the delivery; returning an error requeues it.
type TriageHandler struct {
	pipe         *pipeline.Pipeline
	providerName string
	routingKey   string
	publisher    *mq.Publisher
	retryCounter *util.RetryCounter
	deduper      *util.Deduper
	maxRetries   int64
	logger       *zap.Logger
}

func NewTriageHandler(
	pipe *pipeline.Pipeline,
	providerName string,
	routingKey string,
	publisher *mq.Publisher,
	retryCounter *util.RetryCounter,
	deduper *util.Deduper,
	maxRetries int,
	logger *zap.Logger,
) *TriageHandler {
	return &TriageHandler{
		pipe:         pipe,
		providerName: providerName,
		routingKey:   routingKey,
		publisher:    publisher,
		retryCounter: retryCounter,
		deduper:      deduper,
		maxRetries:   int64(maxRetries),
		logger:       logger,
	}
}

// Handle processes one delivery. Failures never crash the worker: fatal
// errors go to the DLQ and ack, retryable errors requeue until the retry
// budget runs out.
func (h *TriageHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(h.routingKey, h.routingKey+".q", time.Since(start))
	}()

	var job contracts.TriageJobPayload
	if err := json.Unmarshal(raw, &job); err != nil {
		// JSON decode 错误 - 不可重试，发送到 DLQ
		h.logger.Error("Failed to unmarshal triage payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		h.sendToDLQ(raw, "json_unmarshal_error: "+err.Error())
		return nil
	}
	if job.Identity == "" || job.MessageID == "" {
		h.logger.Error("Triage payload missing identity or message_id, sending to DLQ",
			zap.String("raw_payload", string(raw)),
		)
		h.sendToDLQ(raw, "invalid_payload")
		return nil
	}

	jobKey := job.JobKey()
	log := h.logger.With(
		zap.String("provider", h.providerName),
		zap.String("identity", job.Identity),
		zap.String("message_id", job.MessageID),
	)

	log.Info("Processing triage job", zap.String("recipient", job.Recipient))

	// Redis 去重：at-least-once 投递下同一封邮件只处理一次
	if !h.deduper.AcquireOnce(ctx, "triage", jobKey) {
		log.Info("Skipped duplicated triage job")
		metrics.IncrementJobsProcessed(h.providerName, "duplicate")
		return nil
	}

	// 重试计数：超过上限进 DLQ，防止毒消息无限循环
	retryKey := util.FormatRetryKey("triage", jobKey)
	retryCount, err := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if err != nil {
		// Redis 错误不影响处理，继续执行
		log.Warn("Failed to get retry count, continuing anyway", zap.Error(err))
		retryCount = 1
	}

	_, runErr := h.pipe.Run(ctx, job)
	if runErr == nil {
		h.retryCounter.Reset(ctx, retryKey)
		metrics.IncrementJobsProcessed(h.providerName, "completed")
		return nil
	}

	return h.handleFailure(ctx, log, raw, jobKey, retryKey, retryCount, runErr)
}

func (h *TriageHandler) handleFailure(
	ctx context.Context,
	log *zap.Logger,
	raw json.RawMessage,
	jobKey, retryKey string,
	retryCount int64,
	runErr error,
) error {
	// 部分成功：回复已发出，绝不重投，单独上报
	var partial *pipeline.PartialSuccessError
	if errors.As(runErr, &partial) {
		log.Error("Job ended in partial success: reply sent, labeling failed",
			zap.String("sent_message_id", partial.SentMessageID),
			zap.Error(partial.Err),
		)
		h.retryCounter.Reset(ctx, retryKey)
		metrics.IncrementJobsProcessed(h.providerName, "partial_success")
		h.sendToDLQ(raw, "partial_success: "+runErr.Error())
		return nil
	}

	// 缺少 token：用户需要重新授权，重试没有意义
	if errors.Is(runErr, token.ErrCredentialMissing) {
		log.Warn("Job failed: credential missing, user must re-authorize")
		h.retryCounter.Reset(ctx, retryKey)
		h.deduper.Release(ctx, "triage", jobKey)
		metrics.IncrementJobsProcessed(h.providerName, "failed")
		h.sendToDLQ(raw, "credential_missing")
		return nil
	}

	isRetryable, errType := util.IsRetryableError(runErr)
	log.Error("Triage job failed",
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Int64("retry_count", retryCount),
		zap.Error(runErr),
	)

	if !isRetryable {
		// 不可重试（分类失败、compose 失败、4xx 等）- DLQ 并 ack
		h.retryCounter.Reset(ctx, retryKey)
		metrics.IncrementJobsProcessed(h.providerName, "failed")
		h.sendToDLQ(raw, fmt.Sprintf("%s: %s", errType, runErr.Error()))
		return nil
	}

	if retryCount > h.maxRetries {
		log.Warn("Max retries exceeded, sending to DLQ",
			zap.Int64("retry_count", retryCount),
			zap.Int64("max_retries", h.maxRetries),
		)
		h.retryCounter.Reset(ctx, retryKey)
		metrics.IncrementJobsProcessed(h.providerName, "failed")
		h.sendToDLQ(raw, fmt.Sprintf("max_retries_exceeded: %s", runErr.Error()))
		return nil
	}

	// 可重试且未超过上限：释放去重标记，让 MQ 重投
	h.deduper.Release(ctx, "triage", jobKey)
	return runErr
}

func (h *TriageHandler) sendToDLQ(raw json.RawMessage, cause string) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishToDLQ(h.routingKey, raw, cause); err != nil {
		h.logger.Error("Failed to publish to DLQ",
			zap.String("routing_key", h.routingKey),
			zap.Error(err),
		)
	}
}
