package lesson

// Kind classifies what a lesson page expects from the user.
type Kind int

const (
	Informational Kind = iota // content page, advanced without an answer
	SingleChoice
	MultiChoice
	ShortAnswer
)

func (k Kind) String() string {
	switch k {
	case SingleChoice:
		return "single-choice"
	case MultiChoice:
		return "multi-choice"
	case ShortAnswer:
		return "short-answer"
	default:
		return "informational"
	}
}

// Remote question type codes. The portal uses one code for both choice
// variants; only the option markup tells them apart.
const (
	qtypeMultichoice = 3
	qtypeShortAnswer = 8
)

// Classify maps the remote type code plus the option structure to a Kind.
// Codes outside the two answerable ones are informational page turns.
func Classify(qtype int, multiple bool) Kind {
	switch qtype {
	case qtypeMultichoice:
		if multiple {
			return MultiChoice
		}
		return SingleChoice
	case qtypeShortAnswer:
		return ShortAnswer
	default:
		return Informational
	}
}
