package dialect

import (
	"fmt"
	"strings"
)

// nudgeTemplates render the activity prompt with numeric condition fields
// substituted. Only the spray activity has dedicated wording; unknown
// activities fall back to it.
var nudgeTemplates = map[Dialect]map[string]string{
	Hindi: {
		"spray": "आज स्प्रे करने के लिए अच्छा मौसम है। हवा %.1f km/h है और बारिश नहीं होगी। क्या आपने स्प्रे कर दिया?",
	},
	Marathi: {
		"spray": "आज फवारणीसाठी चांगले हवामान आहे। वारा %.1f km/h आहे आणि पाऊस नाही। तुम्ही फवारणी केली का?",
	},
	Telugu: {
		"spray": "ఈరోజు స్ప్రే చేయడానికి మంచి వాతావరణం. గాలి %.1f km/h మరియు వర్షం ఉండదు। మీరు స్ప్రే చేశారా?",
	},
}

var donePrompts = map[Dialect]string{
	Hindi:   "कृपया \"हो गया\" भेजें जब आप स्प्रे कर लें।",
	Marathi: "कृपया \"झाला\" पाठवा जेव्हा तुम्ही फवारणी पूर्ण करता.",
	Telugu:  "దయచేసి \"అయ్యింది\" పంపండి మీరు స్ప్రే పూర్తి చేసినప్పుడు.",
}

// NudgeText renders the favorable-condition prompt for one activity,
// followed by the completion-keyword instruction.
func NudgeText(d Dialect, activity string, windSpeedKmh float64) string {
	templates := nudgeTemplates[Normalize(string(d))]
	tpl, ok := templates[activity]
	if !ok {
		tpl = templates["spray"]
	}
	return fmt.Sprintf(tpl, windSpeedKmh) + "\n\n" + donePrompts[Normalize(string(d))]
}

// Reminder offset labels, fixed at schedule-registration time.
const (
	ReminderShort = "T+24h"
	ReminderLong  = "T+48h"
)

var reminderTemplates = map[Dialect]map[string]string{
	Hindi: {
		ReminderShort: "याद दिलाना: कल हमने स्प्रे करने के लिए कहा था। क्या आपने कर लिया? \"हो गया\" या \"अभी नहीं\" भेजें।",
		ReminderLong:  "अंतिम याद दिलाना: स्प्रे करना बाकी है। कृपया जल्द करें और \"हो गया\" भेजें।",
	},
	Marathi: {
		ReminderShort: "आठवण: काल आम्ही फवारणी करण्यास सांगितले होते। तुम्ही केले का? \"झाला\" किंवा \"नाही झाला\" पाठवा.",
		ReminderLong:  "शेवटची आठवण: फवारणी बाकी आहे. कृपया लवकर करा आणि \"झाला\" पाठवा.",
	},
	Telugu: {
		ReminderShort: "గుర్తు: నిన్న మేము స్ప్రే చేయమని చెప్పాము. మీరు చేశారా? \"అయ్యింది\" లేదా \"ఇంకా లేదు\" పంపండి.",
		ReminderLong:  "చివరి గుర్తు: స్ప్రే చేయడం మిగిలి ఉంది. దయచేసి త్వరగా చేయండి మరియు \"అయ్యింది\" పంపండి.",
	},
}

// ReminderText renders the offset-specific reminder. Unknown labels fall
// back to the short-offset wording.
func ReminderText(d Dialect, label string) string {
	templates := reminderTemplates[Normalize(string(d))]
	if tpl, ok := templates[label]; ok {
		return tpl
	}
	return templates[ReminderShort]
}

var congratsTexts = map[Dialect]string{
	Hindi:   "बहुत बढ़िया! काम पूरा करने के लिए धन्यवाद। 👏",
	Marathi: "खूप छान! काम पूर्ण केल्याबद्दल धन्यवाद. 👏",
	Telugu:  "చాలా బాగుంది! పని పూర్తి చేసినందుకు ధన్యవాదాలు. 👏",
}

// CongratsText is sent when a completion signal closes a nudge.
func CongratsText(d Dialect) string {
	return congratsTexts[Normalize(string(d))]
}

var deferralAcks = map[Dialect]string{
	Hindi:   "ठीक है, हम आपको बाद में याद दिलाएंगे।",
	Marathi: "ठीक आहे, आम्ही तुम्हाला नंतर आठवण करून देऊ.",
	Telugu:  "సరే, మేము మీకు తర్వాత గుర్తు చేస్తాము.",
}

// DeferralAckText is the short acknowledgment for a deferral signal.
func DeferralAckText(d Dialect) string {
	return deferralAcks[Normalize(string(d))]
}

var errorTexts = map[Dialect]string{
	Hindi:   "माफ कीजिए, सिस्टम में तकलीफ है। कृपया थोड़ी देर बाद फिर से कोशिश करें।",
	Marathi: "माफ करा, सिस्टम मध्ये अपघात आला आहे। कृपया थोड्या वेळाने पुन्हा प्रयत्न करा.",
	Telugu:  "క్షమించండి, సిస్టమ్‌లో సమస్య వచ్చింది. దయచేసి కొంత సమయం తర్వాత మళ్లీ ప్రయత్నించండి.",
}

// ErrorText is the generic dialect-matched apology for delivery failures.
func ErrorText(d Dialect) string {
	return errorTexts[Normalize(string(d))]
}

var lowConfidenceTexts = map[Dialect]string{
	Hindi:   "माफ़ करें, आपकी आवाज़ साफ़ नहीं सुनाई दी। कृपया फिर से बोलें या टाइप करें।",
	Marathi: "माफ करा, तुमचा आवाज स्पष्ट ऐकू आला नाही. कृपया पुन्हा बोला किंवा टाइप करा.",
	Telugu:  "క్షమించండి, మీ వాయిస్ స్పష్టంగా వినబడలేదు. దయచేసి మళ్లీ చెప్పండి లేదా టైప్ చేయండి.",
}

var heardLabels = map[Dialect]string{
	Hindi:   "सुना गया",
	Marathi: "ऐकले",
	Telugu:  "విన్నది",
}

// LowConfidenceText asks the user to retype, quoting the low-confidence
// guess for context.
func LowConfidenceText(d Dialect, guess string) string {
	d = Normalize(string(d))
	text := lowConfidenceTexts[d]
	guess = strings.TrimSpace(guess)
	if guess == "" {
		return text
	}
	return fmt.Sprintf("%s\n\n(%s: %s)", text, heardLabels[d], guess)
}
