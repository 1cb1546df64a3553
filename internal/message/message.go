package message

// Message is the normalized shape of a fetched mail, decoded from whatever
// envelope the provider returns. BodyText is empty when the message carries
// no plain-text part; classification then works off subject and snippet.
type Message struct {
	Subject  string
	Snippet  string
	BodyText string
}
