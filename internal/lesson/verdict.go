package lesson

import "strings"

// Outcome is the tri-state verdict of posting an answer.
type Outcome int

const (
	OutcomeInformational Outcome = iota // no feedback block, nothing to judge
	OutcomeCorrect
	OutcomeIncorrect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	default:
		return "informational"
	}
}

// Interpret maps a parsed submission response to an Outcome. A structural
// wrong-answer signal in the markup wins; only when the portal provides none
// do we fall back to matching the localized marker substring, which is the
// fragile part of the whole protocol.
func Interpret(fb Feedback, incorrectMarker string) Outcome {
	if !fb.HasResponse {
		return OutcomeInformational
	}
	if fb.MarkedIncorrect {
		return OutcomeIncorrect
	}
	if incorrectMarker != "" && strings.Contains(strings.ToLower(fb.Text), strings.ToLower(incorrectMarker)) {
		return OutcomeIncorrect
	}
	return OutcomeCorrect
}
