package twilio

import (
	"fmt"
	"strings"
)

// All prompts speak Hindi through Polly's Aditi voice; callers are small
// shop customers who order in Hinglish.
const (
	sayVoice    = "Polly.Aditi"
	sayLanguage = "hi-IN"

	gatherHints = "rice, oil, dal, sugar, wheat, atta, milk, bread"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`
)

func say(text string) string {
	return fmt.Sprintf(`<Say voice="%s" language="%s">%s</Say>`, sayVoice, sayLanguage, xmlEscape(text))
}

func gatherSpeech(action, hints string, body string) string {
	attrs := fmt.Sprintf(`input="speech" action="%s" timeout="5" speechTimeout="auto"`, xmlEscape(action))
	if hints != "" {
		attrs += fmt.Sprintf(` hints="%s"`, xmlEscape(hints))
	}
	return "<Gather " + attrs + ">" + body + "</Gather>"
}

func gatherDTMFSpeech(action, body string) string {
	return fmt.Sprintf(`<Gather input="dtmf speech" action="%s" timeout="5">%s</Gather>`,
		xmlEscape(action), body)
}

func response(parts ...string) string {
	return xmlHeader + "<Response>" + strings.Join(parts, "") + "</Response>"
}

func redirect(path string) string {
	return fmt.Sprintf(`<Redirect method="POST">%s</Redirect>`, xmlEscape(path))
}

func greetingTwiML(shopName, gatherPath, voicePath string) string {
	prompt := fmt.Sprintf("Namaste! %s mein aapka swagat hai. Aap kya order karna chahenge? Apna order bataiye.", shopName)
	return response(
		gatherSpeech(gatherPath, gatherHints, say(prompt)),
		say("Maaf kijiye, mujhe samajh nahi aaya. Kripya dubara bataiye."),
		redirect(voicePath),
	)
}

func repromptTwiML(gatherPath string) string {
	return response(
		gatherSpeech(gatherPath, gatherHints,
			say("Maaf kijiye, mujhe samajh nahi aaya. Kripya apna order dobara bataiye.")),
		say("Kripya dubara bataiye."),
		redirect(gatherPath),
	)
}

func emptyCartTwiML(gatherPath string) string {
	return response(
		gatherSpeech(gatherPath, gatherHints,
			say("Aapne koi item nahi bataya. Kripya dubara order karein.")),
		say("Kripya dubara bataiye."),
		redirect(gatherPath),
	)
}

func itemsAddedTwiML(matchedSummary string, unmatched []string, gatherPath string) string {
	var prompt string
	switch {
	case len(unmatched) > 0 && matchedSummary != "":
		prompt = fmt.Sprintf("Maaf kijiye, %s hamare paas nahi hai. Lekin %s mil gaya. Kya aap kuch aur add karna chahenge? Ya 'bas' bolein.",
			strings.Join(unmatched, ", "), matchedSummary)
	case len(unmatched) > 0:
		prompt = fmt.Sprintf("Maaf kijiye, %s hamare paas nahi hai. Kripya kuch aur bataiye.",
			strings.Join(unmatched, ", "))
	default:
		prompt = fmt.Sprintf("%s mil gaya. Kya aap kuch aur add karna chahenge? Ya 'bas' bolein.", matchedSummary)
	}
	return response(
		gatherSpeech(gatherPath, gatherHints, say(prompt)),
		say("Kripya dubara bataiye."),
		redirect(gatherPath),
	)
}

func confirmTwiML(summary string, total float64, confirmPath string) string {
	prompt := fmt.Sprintf("Aapka order hai: %s. Total amount hai %.0f rupaye. "+
		"Confirm karne ke liye 1 dabayein, ya 'haan' bolein. "+
		"Cancel karne ke liye 2 dabayein, ya 'nahi' bolein.", summary, total)
	return response(
		gatherDTMFSpeech(confirmPath, say(prompt)),
		say("Kripya 1 ya 2 dabayein."),
		redirect(confirmPath),
	)
}

func collectAddressTwiML(addressPath string) string {
	return response(
		gatherSpeech(addressPath, "",
			say("Delivery ke liye aapka address bataiye. Poora address bolein jaise area, landmark, aur ghar number.")),
		say("Kripya apna address bataiye."),
		redirect(addressPath),
	)
}

func orderPlacedTwiML(orderNumber string) string {
	return response(
		say(fmt.Sprintf("Dhanyavaad! Aapka order confirm ho gaya hai. Order number hai %s. "+
			"Aapka order jaldi deliver ho jayega. Namaste!", orderNumber)),
		"<Hangup/>",
	)
}

func orderCancelledTwiML() string {
	return response(
		say("Aapka order cancel kar diya gaya hai. Dubara order karne ke liye call karein. Dhanyavaad!"),
		"<Hangup/>",
	)
}

func errorTwiML(message string) string {
	if message == "" {
		message = "Kuch galat ho gaya. Kripya baad mein call karein."
	}
	return response(say(message), "<Hangup/>")
}

func xmlEscape(in string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(in)
}
