package service

import "sync"

// localList is a view-model's copy of a server-side table. It is replaced
// wholesale on load and patched locally after writes.
type localList[T any] struct {
	mu         sync.Mutex
	items      []*T
	generation uint64
	idOf       func(*T) int64
}

func newLocalList[T any](idOf func(*T) int64) *localList[T] {
	return &localList[T]{idOf: idOf}
}

// begin starts a load and returns its generation.
func (l *localList[T]) begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	return l.generation
}

// replace installs rows in reverse server order. A load that was overtaken
// by a newer one is dropped and replace reports false.
func (l *localList[T]) replace(generation uint64, rows []*T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if generation != l.generation {
		return false
	}

	reversed := make([]*T, len(rows))
	for i, row := range rows {
		reversed[len(rows)-1-i] = row
	}
	l.items = reversed
	return true
}

func (l *localList[T]) prepend(item *T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]*T{item}, l.items...)
}

// merge replaces the item with the given id by apply(old).
func (l *localList[T]) merge(id int64, apply func(T) T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, item := range l.items {
		if l.idOf(item) == id {
			merged := apply(*item)
			l.items[i] = &merged
		}
	}
}

func (l *localList[T]) remove(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.items[:0:0]
	for _, item := range l.items {
		if l.idOf(item) != id {
			kept = append(kept, item)
		}
	}
	l.items = kept
}

func (l *localList[T]) find(id int64) (*T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, item := range l.items {
		if l.idOf(item) == id {
			copied := *item
			return &copied, true
		}
	}
	return nil, false
}

func (l *localList[T]) snapshot() []*T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*T(nil), l.items...)
}
