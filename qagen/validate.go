package qagen

import "strings"

// QuestionMaxTokens caps the length of a generated question.
const QuestionMaxTokens = 60

// fillerPhrases are banned because they reference the source document
// instead of stating the fact directly, which reads poorly through TTS
// and adds nothing a listener needs.
var fillerPhrases = []string{
	"according to the report",
	"the document states",
	"as mentioned in the document",
	"the report indicates",
	"as stated in the document",
	"the document mentions",
	"according to the text",
}

// consequencePatterns flag answers asserting a consequence or requirement
// that the source text may not actually state. They're allowed when
// accompanied by one of sourcingPhrases, which signals the claim was
// copied verbatim rather than inferred.
var consequencePatterns = []string{
	"will not be accepted",
	"will be rejected",
	"is mandatory",
	"must have",
	"it is required",
	"without it",
	"otherwise",
}

var sourcingPhrases = []string{
	"states that",
	"specifies that",
	"defines",
	"explicitly",
}

// ValidationError explains why a Pair was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate rejects a Pair whose question is too long, whose answer
// contains a banned filler preface, or whose answer asserts an unsourced
// consequence claim.
func Validate(p Pair) error {
	question := strings.TrimSpace(p.Question)
	answer := strings.TrimSpace(p.Answer)

	if question == "" || answer == "" {
		return &ValidationError{Reason: "empty question or answer"}
	}

	if EstimateTokens(question) > QuestionMaxTokens {
		return &ValidationError{Reason: "question exceeds max token cap"}
	}

	answerLower := strings.ToLower(answer)

	for _, phrase := range fillerPhrases {
		if strings.Contains(answerLower, phrase) {
			return &ValidationError{Reason: "answer contains filler phrase: " + phrase}
		}
	}

	for _, pattern := range consequencePatterns {
		if !strings.Contains(answerLower, pattern) {
			continue
		}
		sourced := false
		for _, s := range sourcingPhrases {
			if strings.Contains(answerLower, s) {
				sourced = true
				break
			}
		}
		if !sourced {
			return &ValidationError{Reason: "answer may contain unsourced consequence claim: " + pattern}
		}
	}

	return nil
}
