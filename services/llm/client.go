package llm

import "context"

type GenerationParams struct {
	// SystemPrompt carries the drafting instructions: the allowed key
	// vocabulary, the operator grammar, and any retrieved policy context.
	// Backends without a native system role prepend it to the prompt.
	SystemPrompt string   `json:"system_prompt"`
	Temperature  *float32 `json:"temperature"`
	TopK         *int     `json:"top_k"`
	TopP         *float32 `json:"top_p"`
	MaxTokens    *int     `json:"max_tokens"`
	Stop         []string `json:"stop"`
}

// LLMClient defines the standard interface for any rule drafting backend.
// The mapper and validator never call this; drafting runs upstream and its
// output reaches the validator as plain data.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
