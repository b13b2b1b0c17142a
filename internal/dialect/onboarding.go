package dialect

import "strings"

// languageTokens maps recognized language names, in English and in each
// language's own script, to their dialect.
var languageTokens = map[string]Dialect{
	"hindi":   Hindi,
	"हिंदी":   Hindi,
	"हिन्दी":  Hindi,
	"marathi": Marathi,
	"मराठी":   Marathi,
	"telugu":  Telugu,
	"తెలుగు":  Telugu,
}

// MatchLanguage resolves free text or a selected option label to a dialect.
func MatchLanguage(text string) (Dialect, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for token, d := range languageTokens {
		if strings.Contains(lower, strings.ToLower(token)) {
			return d, true
		}
	}
	return "", false
}

// LanguageOptions are the three choices offered on first contact, one per
// supported dialect, in each language's own script.
func LanguageOptions() []string {
	return []string{"हिंदी", "मराठी", "తెలుగు"}
}

// LanguagePromptText greets a new user. It predates any dialect choice, so
// it is trilingual by necessity.
func LanguagePromptText() string {
	return "नमस्ते! AgriNudge में आपका स्वागत है। कृपया अपनी भाषा चुनें।\n" +
		"नमस्कार! कृपया तुमची भाषा निवडा.\n" +
		"నమస్కారం! దయచేసి మీ భాషను ఎంచుకోండి."
}

// cropTokens maps crop names across all supported scripts to their
// canonical English name.
var cropTokens = map[string]string{
	"cotton":   "cotton",
	"कपास":     "cotton",
	"कापूस":    "cotton",
	"పత్తి":    "cotton",
	"soybean":  "soybean",
	"सोयाबीन":  "soybean",
	"సోయాబీన్": "soybean",
	"chilli":   "chilli",
	"मिर्च":    "chilli",
	"मिरची":    "chilli",
	"మిర్చి":   "chilli",
}

// MatchCrop resolves input to a canonical crop name.
func MatchCrop(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for token, crop := range cropTokens {
		if strings.Contains(lower, strings.ToLower(token)) {
			return crop, true
		}
	}
	return "", false
}

// CropNames lists the canonical crops in the given dialect's script, for
// re-prompting.
func CropNames(d Dialect) []string {
	switch Normalize(string(d)) {
	case Marathi:
		return []string{"कापूस", "सोयाबीन", "मिरची"}
	case Telugu:
		return []string{"పత్తి", "సోయాబీన్", "మిర్చి"}
	default:
		return []string{"कपास", "सोयाबीन", "मिर्च"}
	}
}

// consentTokens are the affirmative markers across dialects, plus the
// language-neutral emoji marker. Anything else reads as a no.
var consentTokens = []string{"yes", "haan", "हां", "हाँ", "जी हां", "हो", "होय", "అవును", "సరే", "ठीक है", "ok", "👍"}

// MatchConsent reports whether text is an affirmative consent.
func MatchConsent(text string) bool {
	return containsAny(text, consentTokens)
}

var locationPrompts = map[Dialect]string{
	Hindi:   "आप किस जिले में खेती करते हैं? (जैसे: Nagpur, Wardha)",
	Marathi: "तुम्ही कोणत्या जिल्ह्यात शेती करता? (उदा: Nagpur, Wardha)",
	Telugu:  "మీరు ఏ జిల్లాలో వ్యవసాయం చేస్తున్నారు? (ఉదా: Nagpur, Wardha)",
}

// LocationPromptText asks for the user's district.
func LocationPromptText(d Dialect) string {
	return locationPrompts[Normalize(string(d))]
}

var cropPrompts = map[Dialect]string{
	Hindi:   "आप कौन सी फसल उगाते हैं?",
	Marathi: "तुम्ही कोणते पीक घेता?",
	Telugu:  "మీరు ఏ పంట పండిస్తున్నారు?",
}

// CropPromptText asks for the user's crop.
func CropPromptText(d Dialect) string {
	return cropPrompts[Normalize(string(d))]
}

var consentPrompts = map[Dialect]string{
	Hindi:   "क्या हम आपको मौसम के अनुसार खेती की सलाह भेज सकते हैं? \"हां\" भेजें।",
	Marathi: "आम्ही तुम्हाला हवामानानुसार शेतीचा सल्ला पाठवू शकतो का? \"होय\" पाठवा.",
	Telugu:  "మేము మీకు వాతావరణం ప్రకారం వ్యవసాయ సలహా పంపవచ్చా? \"అవును\" పంపండి.",
}

// ConsentPromptText asks for nudge consent.
func ConsentPromptText(d Dialect) string {
	return consentPrompts[Normalize(string(d))]
}

var completeTexts = map[Dialect]string{
	Hindi:   "धन्यवाद! आपका पंजीकरण पूरा हुआ। अब आप खेती से जुड़े सवाल पूछ सकते हैं।",
	Marathi: "धन्यवाद! तुमची नोंदणी पूर्ण झाली. आता तुम्ही शेतीशी संबंधित प्रश्न विचारू शकता.",
	Telugu:  "ధన్యవాదాలు! మీ నమోదు పూర్తయింది. ఇప్పుడు మీరు వ్యవసాయ ప్రశ్నలు అడగవచ్చు.",
}

// OnboardingCompleteText confirms the finished profile.
func OnboardingCompleteText(d Dialect) string {
	return completeTexts[Normalize(string(d))]
}
