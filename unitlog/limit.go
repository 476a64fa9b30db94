package unitlog

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// DropReason names the limit an entry exceeded.
type DropReason string

const (
	// DroppedForRate entries came faster than the unit rate limit.
	DroppedForRate DropReason = "rate"
	// DroppedForSize entries were longer than the size limit.
	DroppedForSize DropReason = "size"
)

// DropError is returned by Budget.Admit for entries that must not be shipped.
type DropError struct {
	Unit   string
	Reason DropReason
}

func (e *DropError) Error() string {
	return fmt.Sprintf("log entry of unit %s dropped: %s limit exceeded", e.Unit, e.Reason)
}

// Budget limits the log volume shipped for each unit. Every unit has its own
// rate limiter, so a chatty unit cannot use up the budget of the others.
type Budget struct {
	rate int
	size int

	mutex    sync.Mutex
	limiters map[string]*rate.Limiter
	dropped  map[string]int
}

// NewBudget allows perSecond entries a second per unit, in bursts of the same
// size, each at most size bytes long. Zero disables the limit.
func NewBudget(perSecond, size int) *Budget {
	return &Budget{
		rate:     perSecond,
		size:     size,
		limiters: make(map[string]*rate.Limiter),
		dropped:  make(map[string]int),
	}
}

// Admit decides whether an entry of unit with the given length may be
// shipped. Entries without a unit share a single budget.
func (b *Budget) Admit(unit string, length int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.size > 0 && length > b.size {
		return b.drop(unit, DroppedForSize)
	}
	if b.rate > 0 {
		limiter, ok := b.limiters[unit]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(b.rate), b.rate)
			b.limiters[unit] = limiter
		}
		if !limiter.Allow() {
			return b.drop(unit, DroppedForRate)
		}
	}
	return nil
}

func (b *Budget) drop(unit string, reason DropReason) error {
	b.dropped[unit]++
	return &DropError{Unit: unit, Reason: reason}
}

// Dropped returns how many entries of unit were not admitted.
func (b *Budget) Dropped(unit string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.dropped[unit]
}
