package protocol

import (
	"sync"

	"github.com/openagora/agora/core"
)

// registry is the concurrent set of agent identities known to the
// marketplace, consulted for recipient-existence checks.
type registry struct {
	mu     sync.RWMutex
	agents map[string]core.AgentInfo
}

func newRegistry() *registry {
	return &registry{agents: make(map[string]core.AgentInfo)}
}

func (r *registry) add(info core.AgentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[info.ID] = info
}

func (r *registry) exists(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[agentID]
	return ok
}
