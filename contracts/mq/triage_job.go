package mq

import "time"

// 触发一次邮件分诊的 payload
// Identity 是邮箱账号（token 查找的 key），MessageID 是 provider 侧的邮件 id
type TriageJobPayload struct {
	Identity   string    `json:"identity"`
	Recipient  string    `json:"recipient"`
	MessageID  string    `json:"message_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// JobKey returns the dedup/retry key for this job. Identity plus message id
// identifies one message end-to-end regardless of redelivery.
func (p TriageJobPayload) JobKey() string {
	return p.Identity + ":" + p.MessageID
}

// Routing keys and queue names, one pair per provider integration.
const (
	RoutingKeyGmail   = "triage.gmail"
	RoutingKeyOutlook = "triage.outlook"

	QueueGmail   = "triage.gmail.q"
	QueueOutlook = "triage.outlook.q"
)
