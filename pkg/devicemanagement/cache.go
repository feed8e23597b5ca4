package devicemanagement

import (
	"context"
	"sync"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// capabilityCache holds the capability schema shared by all objects of one
// class during a single fan-out. The first worker to need it fills it while
// the others wait; a failed fill leaves it empty for the next worker.
type capabilityCache struct {
	mu         sync.Mutex
	capability *wire.ObjectCapability
}

func (c *capabilityCache) get(ctx context.Context, fill func(ctx context.Context) (*wire.ObjectCapability, error)) (*wire.ObjectCapability, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capability != nil {
		return c.capability, nil
	}
	capability, err := fill(ctx)
	if err != nil {
		return nil, err
	}
	c.capability = capability
	return capability, nil
}
