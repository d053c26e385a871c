package llm

import "strings"

const groundedPromptTemplate = `You are an immigration assistant. Answer the user's question ONLY using the provided context from official U.S. government sources. If the answer is not clearly supported by the context, say that you cannot answer with certainty.

Context:
{context}

User question:
{question}

Answer in clear, concise English. Start with a short direct answer, then provide a brief explanation.`

// BuildGroundedPrompt renders the answer prompt. contextText is the chunk
// texts already joined in rank order.
func BuildGroundedPrompt(question, contextText string) string {
	return strings.NewReplacer(
		"{context}", contextText,
		"{question}", question,
	).Replace(groundedPromptTemplate)
}
