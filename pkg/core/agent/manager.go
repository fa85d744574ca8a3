package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"financial_analyzer/pkg/core/llm"

	"github.com/phuslu/log"
)

// Agent types routed by the manager.
const (
	OCRExtraction = "ocr_extraction"
	Commentary    = "commentary"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
}

func NewManager(config Config) *Manager {
	return NewManagerWithProviders(config, map[string]llm.Provider{
		"gemini":   &llm.GeminiProvider{},
		"deepseek": &llm.DeepSeekProvider{},
	})
}

// NewManagerWithProviders lets tests and alternative deployments inject providers.
func NewManagerWithProviders(config Config, providers map[string]llm.Provider) *Manager {
	return &Manager{config: config, providers: providers}
}

func (m *Manager) GetProvider(agentType string) llm.Provider {
	_, p := m.resolve(agentType)
	return p
}

// ProviderName returns the name of the provider agentType is routed to.
func (m *Manager) ProviderName(agentType string) string {
	name, _ := m.resolve(agentType)
	return name
}

func (m *Manager) resolve(agentType string) (string, llm.Provider) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 1. Agent-specific override
	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return agentConfig.Provider, p
		}
	}

	// 2. Global active provider
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return m.config.ActiveProvider, p
	}

	// 3. Fallback
	return "gemini", m.providers["gemini"]
}

// GetDocumentProvider returns the provider for agentType if it can read documents.
func (m *Manager) GetDocumentProvider(agentType string) (llm.DocumentProvider, error) {
	p := m.GetProvider(agentType)
	if p == nil {
		return nil, fmt.Errorf("no provider configured for %s", agentType)
	}
	dp, ok := p.(llm.DocumentProvider)
	if !ok {
		return nil, fmt.Errorf("provider %T for %s cannot read documents", p, agentType)
	}
	return dp, nil
}

// ExecutePrompt handles instruction adaptation before sending to the model
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(agentType)
	if provider == nil {
		return "", fmt.Errorf("no provider configured for %s", agentType)
	}

	log.Debug().Str("component", "agent").Str("agent", agentType).Str("provider", fmt.Sprintf("%T", provider)).Msg("executing prompt")

	adaptedSystemPrompt := provider.AdaptInstructions(rawSystemPrompt)
	return provider.GenerateResponse(ctx, rawPrompt, adaptedSystemPrompt, options)
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	log.Info().Str("component", "agent").Str("provider", newProvider).Msg("global provider switched")
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// AvailableProviders lists registered provider names in sorted order.
func (m *Manager) AvailableProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
