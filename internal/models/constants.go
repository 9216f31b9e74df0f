package models

const (
	RAGSystemPrompt = "You are a helpful assistant. Use the provided context to answer the query."

	RAGPromptTemplate = `Context:
%s
Query: %s`
)
