package service

import (
	"strings"

	"github.com/xxxsen/docchat/internal/model"
)

const systemPromptTemplate = `You are a helpful AI assistant. You have access to documents uploaded by the user.

Use the following context from the user's uploaded documents to answer their question. The context below contains relevant excerpts from their documents:

Context:
%context%

Instructions:
- Answer based on the information in the context above
- If the context contains the answer, provide it clearly and concisely
- If asked for a summary, summarize the content from the context
- If the context doesn't contain enough information, say so
- Be direct and helpful`

// BuildPrompt assembles the single-string prompt sent to the completion
// model: grounding instructions with the retrieved context inlined, then
// prior exchanges, then the current question.
func BuildPrompt(question string, context string, history []model.QAPair) string {
	var sb strings.Builder
	sb.WriteString(strings.Replace(systemPromptTemplate, "%context%", context, 1))
	sb.WriteString("\n\n")
	for _, qa := range history {
		sb.WriteString("User: ")
		sb.WriteString(qa.Query)
		sb.WriteString("\nAssistant: ")
		sb.WriteString(qa.Answer)
		sb.WriteString("\n\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(question)
	sb.WriteString("\nAssistant:")
	return sb.String()
}
