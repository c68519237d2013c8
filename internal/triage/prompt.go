package triage

import (
	"fmt"
	"regexp"
	"strings"

	"sage/internal/completion"
)

const (
	DefaultModel = "gpt-3.5-turbo"
	MaxTokens    = 400
	Temperature  = 0.2
)

const systemPrompt = `You are "Sage Ai", an expert presenter and IT helpdesk assistant. ` +
	`Answer directly and concisely. Do NOT use filler phrases (no "Let's", "Sure,", "As an AI", etc.). ` +
	`Jump straight into the answer. Use simple language and structure the response using short bullet points. ` +
	`Bold the key points using Markdown syntax like **Key point**. ` +
	`Treat the user's transcribed text as the source of truth (do not "correct" minor spelling). ` +
	`If the user's text is not explicitly a question, infer the user's intent and provide useful clarifying information or remediation steps.`

// BuildRequest assembles the completion request for a query decision.
func BuildRequest(model string, mode Mode, text string) completion.Request {
	if model == "" {
		model = DefaultModel
	}

	return completion.Request{
		Model: model,
		Messages: []completion.Message{
			{Role: completion.RoleSystem, Content: systemPrompt},
			{Role: completion.RoleUser, Content: userMessage(mode, strings.TrimSpace(text))},
		},
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	}
}

func userMessage(mode Mode, text string) string {
	if mode == ModeInferred {
		return fmt.Sprintf(`User utterance (passive overheard): "%s". Determine if this requires a brief helpful response. `+
			`If yes, provide a short 2-4 bullet points answer relevant to likely user intent. If no, reply with nothing.`, text)
	}
	return fmt.Sprintf(`User said: "%s". Provide a clear, direct answer or summary, in bullet points, using bold for key points.`, text)
}

var (
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	bulletRe = regexp.MustCompile(`[-*] `)
	markupRe = regexp.MustCompile(`</?[^>]+(>|$)`)
)

// StripMarkdown removes bold markers, bullet markers and inline markup so
// the reply can be read aloud.
func StripMarkdown(s string) string {
	s = boldRe.ReplaceAllString(s, "$1")
	s = bulletRe.ReplaceAllString(s, "")
	return markupRe.ReplaceAllString(s, "")
}
