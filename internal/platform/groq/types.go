package groq

import "github.com/phrazzld/summa/internal/summarizer"

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []summarizer.Message `json:"messages"`
	ResponseFormat *responseFormat      `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
