package factory

import (
	"fmt"

	"ai-docagent-be/internal/constant"
	"ai-docagent-be/pkg/llm"
	"ai-docagent-be/pkg/llm/ollama"
	"ai-docagent-be/pkg/llm/openai"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = constant.OllamaDefaultBaseURL
		}
		if modelName == "" {
			modelName = constant.OllamaDefaultModel
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai":
		return openai.NewOpenAIProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
