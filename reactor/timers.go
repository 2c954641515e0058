// File: reactor/timers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Deadline wait queue: a binary heap ordered by expiry time. Mutated only
// under the reactor mutex; expired entries are detached under the lock and
// delivered outside it.

package reactor

import (
	"time"

	"github.com/momentics/hioload-multi/api"
)

type timerWaiter struct {
	h     api.WaitHandle
	when  time.Time
	cb    api.CompletionFunc
	index int
}

type timerHeap []*timerWaiter

func (th timerHeap) Len() int { return len(th) }

func (th timerHeap) Less(i, j int) bool { return th[i].when.Before(th[j].when) }

func (th timerHeap) Swap(i, j int) {
	th[i], th[j] = th[j], th[i]
	th[i].index = i
	th[j].index = j
}

func (th *timerHeap) Push(x any) {
	w := x.(*timerWaiter)
	w.index = len(*th)
	*th = append(*th, w)
}

func (th *timerHeap) Pop() any {
	old := *th
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*th = old[:n-1]
	return w
}
