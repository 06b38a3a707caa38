package agent

import (
	"sync"
	"sync/atomic"
)

// BuildFunc constructs the shared agent.
type BuildFunc func() (*Agent, error)

// Cache holds the process-wide agent. The agent is built on first use and
// reused by every interaction afterwards; a failed build is not retried.
type Cache struct {
	build  BuildFunc
	once   sync.Once
	agent  *Agent
	err    error
	builds atomic.Int64
}

// NewCache creates a cache around build.
func NewCache(build BuildFunc) *Cache {
	return &Cache{build: build}
}

// Get returns the shared agent, building it if needed.
func (c *Cache) Get() (*Agent, error) {
	c.once.Do(func() {
		c.builds.Add(1)
		c.agent, c.err = c.build()
	})
	return c.agent, c.err
}

// Builds reports how many times the agent was constructed.
func (c *Cache) Builds() int64 {
	return c.builds.Load()
}
