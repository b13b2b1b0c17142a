package dialect

// doneKeywords are the completion signals per dialect, plus language-neutral
// tokens shared across all of them.
var doneKeywords = map[Dialect][]string{
	Hindi:   {"हो गया", "कर दिया", "हो गया है", "कर लिया", "done", "completed"},
	Marathi: {"झाला", "केला", "पूर्ण झाला", "done"},
	Telugu:  {"అయ్యింది", "చేశాను", "పూర్తయింది", "done"},
}

// notYetKeywords are the deferral signals per dialect. They are tested before
// completion keywords because the sets share substrings (e.g. "नहीं किया"
// contains no completion token but "not yet" and "done" can co-occur in one
// message, and deferral is the more specific reading).
var notYetKeywords = map[Dialect][]string{
	Hindi:   {"अभी नहीं", "बाद में", "नहीं किया", "not yet", "later"},
	Marathi: {"नाही झाला", "नंतर", "अजून नाही", "not yet"},
	Telugu:  {"ఇంకా లేదు", "తర్వాత", "చేయలేదు", "not yet"},
}

// MatchesDone reports whether text contains a completion keyword in any
// supported dialect.
func MatchesDone(text string) bool {
	for _, kws := range doneKeywords {
		if containsAny(text, kws) {
			return true
		}
	}
	return false
}

// MatchesNotYet reports whether text contains a deferral keyword in any
// supported dialect.
func MatchesNotYet(text string) bool {
	for _, kws := range notYetKeywords {
		if containsAny(text, kws) {
			return true
		}
	}
	return false
}

// IsControlMessage reports whether text is a nudge control signal rather than
// a question. The ingestion gateway uses this to keep control messages off
// the answer-generation path.
func IsControlMessage(text string) bool {
	return MatchesNotYet(text) || MatchesDone(text)
}
