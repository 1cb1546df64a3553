package gmail

import (
	"encoding/base64"

	"mailtriage/internal/message"
)

// gmailMessage is the users.messages.get envelope, reduced to the fields the
// pipeline decodes.
type gmailMessage struct {
	Snippet string       `json:"snippet"`
	Payload gmailPayload `json:"payload"`
}

type gmailPayload struct {
	MimeType string         `json:"mimeType"`
	Headers  []gmailHeader  `json:"headers"`
	Body     gmailBody      `json:"body"`
	Parts    []gmailPayload `json:"parts"`
}

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailBody struct {
	Data string `json:"data"`
}

// decodeMessage normalizes a Gmail envelope. Multipart messages contribute
// their first text/plain part; single-part messages contribute the top-level
// body. No plain-text part means an empty body, never an error.
func decodeMessage(env *gmailMessage) *message.Message {
	var subject string
	for _, h := range env.Payload.Headers {
		if h.Name == "Subject" {
			subject = h.Value
			break
		}
	}

	var bodyText string
	if len(env.Payload.Parts) > 0 {
		for _, part := range env.Payload.Parts {
			if part.MimeType == "text/plain" {
				bodyText = decodeBase64(part.Body.Data)
				break
			}
		}
	} else {
		bodyText = decodeBase64(env.Payload.Body.Data)
	}

	return &message.Message{
		Subject:  subject,
		Snippet:  env.Snippet,
		BodyText: bodyText,
	}
}

// decodeBase64 handles both url-safe (what Gmail emits) and standard
// alphabets; undecodable data degrades to empty text.
func decodeBase64(data string) string {
	if data == "" {
		return ""
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.StdEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}
