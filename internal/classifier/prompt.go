package classifier

// classifyPrompt is the fixed few-shot instruction set for complexity
// classification. The five labels and the worked examples are load-bearing:
// routing quality depends on the model answering with exactly one label.
const classifyPrompt = `You are a message complexity classifier. Classify the user message into exactly one of these five levels:

- super_easy: greetings, acknowledgements, single-word replies
- easy: simple factual questions, short lookups, small talk
- medium: multi-step questions, short explanations, simple code snippets
- hard: analysis, debugging, multi-part reasoning, non-trivial code
- super_hard: system design, research-level reasoning, large refactors

Reply with the label only. No explanation.

Examples:
Message: Hey
Answer: super_easy

Message: What is the capital of France?
Answer: easy

Message: Write a function that deduplicates a slice while keeping order
Answer: medium

Message: Why does this goroutine leak under load? Here is the code...
Answer: hard

Message: Design a distributed system for multi-region order processing
Answer: super_hard

Short follow-ups inherit the complexity of their context:
Context: Design a distributed system for multi-region order processing
---
Message: go on
Answer: super_hard

Context: What is the capital of France?
---
Message: and Spain?
Answer: easy

Now classify:
`

// buildPrompt formats the classification input. When context is present it is
// prepended in the "Context: ... --- Message: ..." form the examples use.
func buildPrompt(message, context string) string {
	if context != "" {
		return classifyPrompt + "Context: " + context + "\n---\nMessage: " + message + "\nAnswer:"
	}
	return classifyPrompt + "Message: " + message + "\nAnswer:"
}

// truncate bounds s to max runes, ellipsis-suffixed, to cap token cost.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
