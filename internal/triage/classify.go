package triage

import "strings"

var questionWords = []string{
	"who", "what", "when", "where", "why", "how",
	"is", "are", "do", "does", "did",
	"should", "could", "can",
	"explain", "tell me", "define",
}

var questionPhrases = []string{"do you mean", "is this", "meaning of"}

// helpdesk cue words that justify an unsolicited answer
var keywords = []string{
	"password", "outlook", "ost", "pst", "error", "server", "wifi",
	"slow", "crash", "install", "license", "office 365", "exchange",
}

// IsQuestionLike reports whether text reads as a question: it has a '?',
// opens with a question word followed by a space or an apostrophe, or
// contains one of a few clarifying phrases. Matching is literal and
// case-insensitive.
func IsQuestionLike(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}

	if strings.Contains(t, "?") {
		return true
	}

	for _, w := range questionWords {
		if strings.HasPrefix(t, w+" ") || strings.HasPrefix(t, w+"'") {
			return true
		}
	}

	for _, p := range questionPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}

	return false
}

// HasKeyword reports whether text mentions any helpdesk cue word.
func HasKeyword(text string) bool {
	t := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

func containsFold(text, sub string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(sub))
}
