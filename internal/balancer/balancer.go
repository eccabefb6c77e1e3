// Package balancer selects an SFU instance for each request, preferring the
// hinted region and falling back to geographically close ones.
package balancer

import (
	"sync/atomic"

	"github.com/mediakit/sfu-gateway/internal/config"
	"github.com/mediakit/sfu-gateway/internal/geo"
)

// Instance is one SFU node the gateway can route to.
type Instance struct {
	Address string
	// Region is empty when the node carries no region label.
	Region string
	// Key is the decoded JWT secret for signing tokens to this SFU.
	Key []byte
}

// Balancer holds the roster and distributes selections across it. The roster
// is fixed at construction; dynamic membership would swap the whole index,
// keeping reads lock-free.
type Balancer struct {
	instances []*Instance
	// byRegion is built once so hinted selections never scan the roster.
	byRegion map[string][]*Instance
	counter  atomic.Uint64
}

// New builds a balancer over the configured SFU nodes.
func New(nodes []config.SFUConfig) *Balancer {
	instances := make([]*Instance, 0, len(nodes))
	byRegion := make(map[string][]*Instance)
	for _, node := range nodes {
		inst := &Instance{
			Address: node.Address,
			Region:  node.Region,
			Key:     node.Key,
		}
		instances = append(instances, inst)
		if inst.Region != "" {
			byRegion[inst.Region] = append(byRegion[inst.Region], inst)
		}
	}
	return &Balancer{instances: instances, byRegion: byRegion}
}

// Len reports the roster size.
func (b *Balancer) Len() int {
	return len(b.instances)
}

// Select picks an SFU instance for the given region hint.
//
// With a hint, the fallback order for that region is walked and the first
// region with at least one instance wins; round-robin applies within that
// region's instances. Without a hint, with an unknown hint, or when no region
// in the fallback order has instances, round-robin covers the whole roster.
// Returns nil only when the roster is empty.
func (b *Balancer) Select(regionHint string) *Instance {
	if len(b.instances) == 0 {
		return nil
	}
	if regionHint != "" {
		for _, region := range geo.RegionFallbackOrder(regionHint) {
			if candidates := b.byRegion[region]; len(candidates) > 0 {
				return b.pick(candidates)
			}
		}
	}
	return b.pick(b.instances)
}

// pick round-robins within the candidate list. One counter is shared across
// all candidate subsets, so fairness holds per subset across consecutive
// calls to that subset, not globally.
func (b *Balancer) pick(candidates []*Instance) *Instance {
	index := (b.counter.Add(1) - 1) % uint64(len(candidates))
	return candidates[index]
}
