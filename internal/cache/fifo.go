package cache

// fifoPolicy evicts the key admitted longest ago, regardless of access
// recency.
type fifoPolicy struct {
	order []Key
}

func newFIFOPolicy() *fifoPolicy {
	return &fifoPolicy{}
}

func (p *fifoPolicy) Admitted(key Key) {
	p.order = append(p.order, key)
}

func (p *fifoPolicy) Accessed(Key) {}

func (p *fifoPolicy) Victim() Key {
	return p.order[0]
}

func (p *fifoPolicy) Removed(key Key) {
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}
