package discord

import (
	"strings"
	"sync"

	"github.com/PancyStudios/PancyGuard/pkg/logger"
)

// ComponentRunFunc handles a button or modal submit. payload is the part of
// the custom ID after the first ':'.
type ComponentRunFunc func(ctx *CommandContext, payload string) error

// Component binds a custom ID prefix to a handler
type Component struct {
	Prefix string
	Gated  bool
	Run    ComponentRunFunc
}

// ComponentCollection routes component and modal interactions by prefix
type ComponentCollection struct {
	components map[string]*Component
	mu         sync.RWMutex
}

// NewComponentCollection creates an empty ComponentCollection
func NewComponentCollection() *ComponentCollection {
	return &ComponentCollection{components: make(map[string]*Component)}
}

// Register adds or replaces the handler for a prefix
func (cc *ComponentCollection) Register(c *Component) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.components[c.Prefix] = c
	logger.Debug("Componente registrado: "+c.Prefix, "ComponentHandler")
}

// Match returns the handler for customID and its payload
func (cc *ComponentCollection) Match(customID string) (*Component, string, bool) {
	prefix, payload, _ := strings.Cut(customID, ":")
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	c, ok := cc.components[prefix]
	return c, payload, ok
}

// Size returns the number of registered prefixes
func (cc *ComponentCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.components)
}
