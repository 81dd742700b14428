package pipeline

import "anchord/internal/metrics"

// Orderer buffers out-of-order worker results and releases them in
// discovery order
type Orderer struct {
	nextExpected int
	pending      map[int]*FetchedTx
}

// NewOrderer creates an orderer expecting index 0 first
func NewOrderer() *Orderer {
	return &Orderer{pending: make(map[int]*FetchedTx)}
}

// Add buffers result and returns the run of results that are now in order,
// possibly empty
func (o *Orderer) Add(result *FetchedTx) []*FetchedTx {
	o.pending[result.Index] = result

	var ready []*FetchedTx
	for {
		next, ok := o.pending[o.nextExpected]
		if !ok {
			break
		}
		ready = append(ready, next)
		delete(o.pending, o.nextExpected)
		o.nextExpected++
	}

	metrics.PipelineQueueDepth.Set(float64(len(o.pending)))
	return ready
}

// GetPendingCount returns the number of results waiting for an earlier one
func (o *Orderer) GetPendingCount() int {
	return len(o.pending)
}

// GetNextExpected returns the index the orderer is waiting for
func (o *Orderer) GetNextExpected() int {
	return o.nextExpected
}
