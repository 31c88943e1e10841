package sim

import "sync"

// idPool hands out dense agent ids. Ids released by despawned agents are
// recycled before the range grows, which keeps the ids small enough to stay
// readable in logs and client payloads.
type idPool struct {
	mu   sync.Mutex
	next uint32
	free []uint32
}

func (p *idPool) acquire() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		return id
	}

	p.next++
	return p.next
}

func (p *idPool) release(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.free = append(p.free, id)
}
