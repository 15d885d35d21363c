package core

import (
	"fmt"
	"sync"
)

// IDPool hands out small, reusable numeric identifiers. Released ids are
// handed out again before the pool grows.
type IDPool struct {
	mu     sync.Mutex
	owners []interface{}
}

func NewIDPool(capacity int) *IDPool {
	if capacity < 1 {
		capacity = 1
	}
	return &IDPool{
		owners: make([]interface{}, capacity),
	}
}

func (p *IDPool) Acquire(owner interface{}) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	length := uint32(len(p.owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return i
		}
	}

	// No free slots, push a new one. The id will be length - 1.
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners)) - 1
}

func (p *IDPool) Release(id uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	length := uint32(len(p.owners))
	if id >= length {
		return fmt.Errorf("id '%d' out of range (max=%d). Nothing was done", id, length)
	}
	if p.owners[id] == nil {
		return fmt.Errorf("id '%d' is not in use. Nothing was done", id)
	}
	p.owners[id] = nil
	return nil
}

// Owner returns the value registered for id, or nil.
func (p *IDPool) Owner(id uint32) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id >= uint32(len(p.owners)) {
		return nil
	}
	return p.owners[id]
}
