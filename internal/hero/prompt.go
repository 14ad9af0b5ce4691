package hero

import (
	"fmt"
	"strings"

	"github.com/hero-meeting/platform/internal/model"
)

// NoContextMarker is the literal the prompt carries when there is no
// conversation history or past-meeting context at all.
const NoContextMarker = "NO CONTEXT AVAILABLE"

const promptPreamble = `You are Hero, an intelligent AI meeting attendee. You are present in this meeting to actively listen, understand the discussion, and provide clear, concise, context-aware answers when addressed.

CRITICAL RULES:
1. Only use the context provided below. Never use outside knowledge about this meeting or its participants.
2. Never invent names, people, or facts that do not appear in the context.
3. If the context does not contain enough information to answer, say "I don't have that specific information" rather than guessing.
4. Do not infer when something happened or who participated in what unless the context states it explicitly.
5. Keep answers focused and concise (1-3 sentences is usually enough).`

const noContextNotice = NoContextMarker + ` - there is no conversation history and no past-meeting context for this request. Answer only from the question itself, say so if you cannot, and do not name or reference any person.`

// BuildPrompt assembles the full LLM prompt: anti-hallucination preamble,
// then the window summary, the recent window lines, any past-meeting
// context, and finally the literal question.
func BuildPrompt(question, summary, windowContext, pastContext string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n")

	hasContext := windowContext != "" || pastContext != ""
	if !hasContext {
		b.WriteString(noContextNotice)
		b.WriteString("\n\n")
	} else {
		if summary != "" {
			b.WriteString("Meeting summary: ")
			b.WriteString(summary)
			b.WriteString("\n\n")
		}
		if windowContext != "" {
			b.WriteString("Current Meeting Context:\n")
			b.WriteString(windowContext)
			b.WriteString("\n\n")
		}
		if pastContext != "" {
			b.WriteString(pastContext)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("The participant just asked you:\n")
	b.WriteString(question)
	return b.String()
}

// BuildSummaryPrompt assembles a meeting-summary prompt from the durable
// transcript. The same anti-hallucination rules apply: only speakers and
// statements present in the transcript may appear in the summary.
func BuildSummaryPrompt(meeting *model.Meeting, transcripts []model.Utterance) string {
	var b strings.Builder
	b.WriteString("Summarize the following meeting transcript in 3-5 sentences.\n\n")
	b.WriteString("CRITICAL RULES:\n")
	b.WriteString("1. Only reference people and statements that appear in the transcript below.\n")
	b.WriteString("2. Never invent decisions, action items, or participants.\n")
	b.WriteString("3. If the transcript is too short to summarize meaningfully, say so.\n\n")
	fmt.Fprintf(&b, "Meeting room: %s\nStarted: %s\n\nTranscript:\n",
		meeting.RoomName, meeting.StartedAt.Format("2006-01-02 15:04"))
	for _, u := range transcripts {
		fmt.Fprintf(&b, "%s: %s\n", u.Speaker.Label(), u.Message)
	}
	return b.String()
}
