package intake

import "strings"

// Keyword sets mirror the phrases customers actually use on calls: mixed
// Hindi/Hinglish and English.
var (
	doneKeywords = []string{
		"bas", "done", "that's all", "that is all", "thats it",
		"finish", "complete", "ho gaya", "khatam",
	}
	affirmKeywords = []string{"yes", "haan", "ha", "confirm", "ok", "okay"}
	negateKeywords = []string{"no", "nahi", "cancel", "ruko"}
	cancelCommands = []string{"cancel", "/cancel", "cancel karo", "order cancel"}
)

// IsDone detects an end-of-items signal. Matching is against whole
// tokenized words, or the exact trimmed utterance, never bare substrings:
// "khatam" inside a longer unrelated word must not end the order.
func IsDone(utterance string) bool {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	if lowered == "" {
		return false
	}
	for _, kw := range doneKeywords {
		if lowered == kw {
			return true
		}
	}
	words := strings.Fields(lowered)
	for _, kw := range doneKeywords {
		if strings.ContainsRune(kw, ' ') {
			if containsPhrase(words, strings.Fields(kw)) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}

// IsAffirmative classifies a confirmation utterance.
func IsAffirmative(utterance string) bool {
	return containsAnyWord(utterance, affirmKeywords)
}

// IsNegative classifies a rejection utterance.
func IsNegative(utterance string) bool {
	return containsAnyWord(utterance, negateKeywords)
}

// IsCancelCommand detects an explicit whole-utterance cancel, honored from
// any non-terminal state.
func IsCancelCommand(utterance string) bool {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	for _, cmd := range cancelCommands {
		if lowered == cmd {
			return true
		}
	}
	return false
}

func containsAnyWord(utterance string, keywords []string) bool {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(utterance)))
	for _, w := range words {
		for _, kw := range keywords {
			if w == kw {
				return true
			}
		}
	}
	return false
}

func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 || len(words) < len(phrase) {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j := range phrase {
			if words[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
