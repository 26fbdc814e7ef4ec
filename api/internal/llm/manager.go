package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Provider is one configured model endpoint together with the solving mode
// it should be driven with.
type Provider struct {
	Name         string
	Model        string
	Mode         string // "direct" | "verified"
	SystemPrompt string
	MaxAttempts  int
	Completer    Completer
}

// Manager keeps the provider catalogue and the per-chat choice made with
// /engine. Chats that never chose fall back to the default provider.
type Manager struct {
	def       string
	providers map[string]*Provider
	m         sync.Map // chatID -> provider name
}

func NewManager(defaultName string, providers ...*Provider) (*Manager, error) {
	mgr := &Manager{def: defaultName, providers: make(map[string]*Provider, len(providers))}
	for _, p := range providers {
		mgr.providers[p.Name] = p
	}
	if _, ok := mgr.providers[defaultName]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured", defaultName)
	}
	return mgr, nil
}

func (m *Manager) Default() *Provider { return m.providers[m.def] }

func (m *Manager) Lookup(name string) (*Provider, bool) {
	p, ok := m.providers[name]
	return p, ok
}

func (m *Manager) Get(chatID int64) *Provider {
	if v, ok := m.m.Load(chatID); ok {
		if p, ok := m.providers[v.(string)]; ok {
			return p
		}
	}
	return m.Default()
}

func (m *Manager) Set(chatID int64, name string) error {
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	m.m.Store(chatID, name)
	return nil
}

func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.providers))
	for n := range m.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
