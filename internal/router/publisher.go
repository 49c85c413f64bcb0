package router

import "github.com/pixil98/go-presence/internal/registry"

// DirectPublisher resolves players through the local connection
// registry and writes to their handles. Correct for a single-process
// deployment; members connected to other processes are unreachable and
// skipped, which is the limitation the NATS publisher exists to fix.
type DirectPublisher struct {
	reg *registry.Registry
}

func NewDirectPublisher(reg *registry.Registry) *DirectPublisher {
	return &DirectPublisher{reg: reg}
}

func (p *DirectPublisher) PublishToPlayer(playerID string, data []byte) error {
	h, ok := p.reg.Resolve(playerID)
	if !ok {
		// Not an error: the player vanished moments ago or lives on
		// another process.
		return nil
	}
	h.Send(data)
	return nil
}
