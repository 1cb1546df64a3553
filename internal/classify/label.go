package classify

import "strings"

// Label is the closed set of intent labels assigned to an inbound message.
type Label string

const (
	LabelInterested      Label = "Interested"
	LabelNotInterested   Label = "Not Interested"
	LabelMoreInformation Label = "More Information"
)

// ParseAnswer maps a free-text model answer onto a Label by substring match.
// "Not Interested" must be checked before "Interested": the positive label
// is a substring of the negative one, so the reverse order would mislabel
// every negative answer.
func ParseAnswer(answer string) (Label, bool) {
	if strings.TrimSpace(answer) == "" {
		return "", false
	}
	switch {
	case strings.Contains(answer, "Not Interested"):
		return LabelNotInterested, true
	case strings.Contains(answer, "Interested"):
		return LabelInterested, true
	default:
		// 原始实现里其它回答一律归为 More Information
		return LabelMoreInformation, true
	}
}
