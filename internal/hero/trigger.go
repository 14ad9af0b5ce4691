package hero

import (
	"regexp"
	"strings"
)

// GreetingQuestion substitutes for an empty question after the trigger
// phrase is stripped.
const GreetingQuestion = "Hello! How can I help you today?"

var (
	// greetingTrigger matches a greeting word followed by the assistant's
	// name anywhere in the message.
	greetingTrigger = regexp.MustCompile(`(?i)\b(?:hey|hi|hello)[\s,]+(?:hero|hiro)\b`)

	// leadingTrigger matches the bare assistant name as the first word.
	// This form is known to false-positive on sentences that start with
	// "hero" in an unrelated sense; the behavior is kept deliberately.
	leadingTrigger = regexp.MustCompile(`(?i)^\s*(?:hero|hiro)\b`)
)

// DetectTrigger reports whether a message addresses the assistant and, if
// so, returns the question with the trigger phrase stripped. An empty
// remainder yields the canned greeting question.
func DetectTrigger(message string) (bool, string) {
	var stripped string
	switch {
	case greetingTrigger.MatchString(message):
		loc := greetingTrigger.FindStringIndex(message)
		stripped = message[:loc[0]] + message[loc[1]:]
	case leadingTrigger.MatchString(message):
		stripped = leadingTrigger.ReplaceAllString(message, "")
	default:
		return false, ""
	}

	question := strings.TrimSpace(stripped)
	question = strings.TrimLeft(question, ",.!?:;-")
	// Splicing the trigger out of the middle of a sentence can leave a
	// doubled space behind.
	question = strings.Join(strings.Fields(question), " ")
	if question == "" {
		question = GreetingQuestion
	}
	return true, question
}

// markdownMarkers strips the bold/italic markers that read poorly when
// spoken aloud. The stored transcript keeps the original formatting.
var markdownMarkers = strings.NewReplacer("**", "", "__", "", "*", "")

// StripMarkdown returns text with markdown emphasis markers removed, for
// hand-off to speech synthesis.
func StripMarkdown(text string) string {
	return markdownMarkers.Replace(text)
}
