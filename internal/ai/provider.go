package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUnavailable = errors.New("ai provider unavailable")

// Prompt asks a model to pick one of Choices for Input. Providers that
// support constrained output restrict the reply to Choices; the others
// receive them in Instruction and the caller maps the free-form reply.
type Prompt struct {
	Instruction string
	Input       string
	Choices     []string
}

// Provider is one model backend, selected by name from config.
type Provider interface {
	Name() string
	Classify(ctx context.Context, model string, p Prompt) (string, error)
}

// Classifier is a Provider bound to a model.
type Classifier interface {
	Classify(ctx context.Context, p Prompt) (string, error)
}

type boundClassifier struct {
	provider Provider
	model    string
}

func NewClassifier(p Provider, model string) Classifier {
	return &boundClassifier{provider: p, model: model}
}

func (c *boundClassifier) Classify(ctx context.Context, p Prompt) (string, error) {
	return c.provider.Classify(ctx, c.model, p)
}

type ProviderFactory func(args interface{}) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
