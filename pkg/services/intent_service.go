package services

import (
	"context"
	"log"
	"strings"

	"metrics-chat-api/pkg/models"
)

// TextGenerator is the call contract for the remote text-generation
// collaborator. It is the only external latency in the pipeline; every
// caller recovers from its failure locally.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

const intentPrompt = `You are an intent classifier for an analytics chatbot.

Your job is to classify the user's question into EXACTLY ONE of the intents below.

INTENTS:

VALUE
-> Asking for the value of a single metric at a specific point in time
-> Examples: today, yesterday, day before yesterday

COMPARISON
-> Comparing a single metric between two specific points in time
-> Examples: today vs yesterday, yesterday vs day before

TREND
-> Asking about how a metric changes over a time range
-> Examples: last 7 days, trend, over time

SUMMARY
-> Asking for an overall performance summary across multiple metrics
-> Examples: how did we perform, give me a summary, overall performance

ROOT_CAUSE
-> Asking why a single metric changed at a specific point in time
-> Examples: why did revenue drop yesterday, why did traffic spike today

PERIOD_ROOT_CAUSE
-> Asking why performance over an aggregated period (like last week) was good or bad
-> Examples: why was last week bad, what went wrong last week

UNKNOWN
-> Anything that does not clearly fit the above categories

RULES:
- Respond with ONLY the intent label
- Do NOT explain
- Do NOT add punctuation
- Do NOT add extra words
- Choose the MOST specific intent

EXAMPLES:
"What is revenue today?" -> VALUE
"How was our conversion rate yesterday?" -> VALUE
"What was traffic day before yesterday?" -> VALUE

"Compare revenue today vs yesterday" -> COMPARISON
"Compare traffic yesterday vs day before" -> COMPARISON

"Show traffic trend for last 7 days" -> TREND
"How has revenue changed over time?" -> TREND

"Give me a summary for today" -> SUMMARY
"How did we perform yesterday?" -> SUMMARY
"Overall performance yesterday?" -> SUMMARY

"Why did revenue drop yesterday?" -> ROOT_CAUSE
"Why did traffic spike today?" -> ROOT_CAUSE

"Why was last week bad?" -> PERIOD_ROOT_CAUSE
"Why did last week perform worse?" -> PERIOD_ROOT_CAUSE
"What went wrong last week?" -> PERIOD_ROOT_CAUSE

"How did we perform?" -> UNKNOWN
`

// IntentService classifies a question into one of the supported intents by
// prompting the text-generation collaborator at temperature zero. Any
// failure degrades to UNKNOWN; classification never blocks the pipeline.
type IntentService struct {
	generator TextGenerator
}

// NewIntentService creates an intent classifier backed by the collaborator.
func NewIntentService(generator TextGenerator) *IntentService {
	return &IntentService{generator: generator}
}

// Classify returns the intent for a user question.
func (s *IntentService) Classify(ctx context.Context, query string) models.Intent {
	prompt := intentPrompt + "\nUser Question:\n" + query + "\n"

	response, err := s.generator.Generate(ctx, prompt, 0.0)
	if err != nil {
		log.Printf("intent classification failed, using UNKNOWN: %v", err)
		return models.IntentUnknown
	}

	label := strings.ToUpper(strings.TrimSpace(response))
	return models.ParseIntent(label)
}
