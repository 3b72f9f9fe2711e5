// Implements the WaitQueue, which holds all requests waiting for a resource.
// Requests are kept in grant order on insertion.

package sim

import (
	"fmt"
	"sort"
	"strings"
)

// WaitQueue orders pending requests by priority (numerically lower first)
// and, within a priority, by the order they were made.
type WaitQueue struct {
	queue []*Request
}

// Enqueue inserts a request behind every request that must be granted before it.
func (wq *WaitQueue) Enqueue(r *Request) {
	i := sort.Search(len(wq.queue), func(i int) bool {
		return r.before(wq.queue[i])
	})
	wq.queue = append(wq.queue, nil)
	copy(wq.queue[i+1:], wq.queue[i:])
	wq.queue[i] = r
}

func (wq *WaitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range wq.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of requests in the queue.
func (wq *WaitQueue) Len() int {
	return len(wq.queue)
}

// Peek returns the request at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (wq *WaitQueue) Peek() *Request {
	if len(wq.queue) == 0 {
		return nil
	}
	return wq.queue[0]
}

// Dequeue removes the request at the front of the queue.
func (wq *WaitQueue) Dequeue() *Request {
	if len(wq.queue) == 0 {
		return nil
	}
	req := wq.queue[0]
	wq.queue = wq.queue[1:]
	return req
}

// Remove drops r from the queue and reports whether it was present.
func (wq *WaitQueue) Remove(r *Request) bool {
	for i, q := range wq.queue {
		if q == r {
			wq.queue = append(wq.queue[:i], wq.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage and MUST NOT be modified.
func (wq *WaitQueue) Items() []*Request {
	return wq.queue
}
