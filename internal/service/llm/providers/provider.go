// Package providers holds the llm.Provider implementations.
package providers

import (
	"fmt"

	"github.com/chynybekuuludastan/story_generator/internal/service/llm"
)

// Config selects and configures one provider
type Config struct {
	Name     string
	APIKey   string
	Model    string
	BaseURL  string
	Moderate bool
}

// New creates the provider named in cfg
func New(cfg Config, logger llm.Logger) (llm.Provider, error) {
	var (
		provider llm.Provider
		err      error
	)

	switch cfg.Name {
	case "gemini", "":
		provider, err = NewGeminiProvider(cfg.APIKey, cfg.Model, logger)
	case "openai":
		provider, err = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Moderate, logger)
	default:
		return nil, fmt.Errorf("%w: %s", llm.ErrInvalidProvider, cfg.Name)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}
