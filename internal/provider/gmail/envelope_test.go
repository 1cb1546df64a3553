package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecodeMessageMultipart(t *testing.T) {
	env := &gmailMessage{
		Snippet: "Hi there",
		Payload: gmailPayload{
			MimeType: "multipart/alternative",
			Headers: []gmailHeader{
				{Name: "From", Value: "alice@example.com"},
				{Name: "Subject", Value: "Re: demo call"},
			},
			Parts: []gmailPayload{
				{MimeType: "text/plain", Body: gmailBody{Data: b64url("plain body")}},
				{MimeType: "text/html", Body: gmailBody{Data: b64url("<p>html body</p>")}},
			},
		},
	}

	msg := decodeMessage(env)
	assert.Equal(t, "Re: demo call", msg.Subject)
	assert.Equal(t, "Hi there", msg.Snippet)
	assert.Equal(t, "plain body", msg.BodyText)
}

func TestDecodeMessageSinglePart(t *testing.T) {
	env := &gmailMessage{
		Payload: gmailPayload{
			MimeType: "text/plain",
			Headers:  []gmailHeader{{Name: "Subject", Value: "hello"}},
			Body:     gmailBody{Data: b64url("single part body")},
		},
	}

	msg := decodeMessage(env)
	assert.Equal(t, "hello", msg.Subject)
	assert.Equal(t, "single part body", msg.BodyText)
}

func TestDecodeMessageNoTextPlainPart(t *testing.T) {
	env := &gmailMessage{
		Snippet: "attachment only",
		Payload: gmailPayload{
			MimeType: "multipart/mixed",
			Parts: []gmailPayload{
				{MimeType: "text/html", Body: gmailBody{Data: b64url("<p>only html</p>")}},
				{MimeType: "application/pdf", Body: gmailBody{Data: b64url("%PDF")}},
			},
		},
	}

	// 没有 text/plain 部分时正文为空，但不报错
	msg := decodeMessage(env)
	assert.Empty(t, msg.BodyText)
	assert.Equal(t, "attachment only", msg.Snippet)
}

func TestDecodeBase64(t *testing.T) {
	assert.Equal(t, "hello", decodeBase64(base64.RawURLEncoding.EncodeToString([]byte("hello"))))
	assert.Equal(t, "hello", decodeBase64(base64.StdEncoding.EncodeToString([]byte("hello"))))
	assert.Empty(t, decodeBase64(""))
	assert.Empty(t, decodeBase64("!!!not base64!!!"))
}
