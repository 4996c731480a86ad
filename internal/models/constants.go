package models

const (
	// ContextSeparator joins retrieved chunk texts into the grounding context.
	ContextSeparator = "\n\n---\n\n"
	// SourceExcerptLen caps cited source excerpts before the ellipsis marker.
	SourceExcerptLen = 200
	// RefusalAnswer is the string the model is instructed to emit when the
	// context does not contain the answer. Prompt-level contract, not enforced.
	RefusalAnswer = "I don't know based on the provided documents."
)

var (
	RAGPromptTemplate = `You are an AI assistant.
Answer ONLY using the provided context.
If the answer is not found in the context, respond with: "` + RefusalAnswer + `"

Context:
%s

Question:
%s
`
)
