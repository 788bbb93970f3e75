package list

import (
	"sync"
	"sync/atomic"
)

// Sized is anything which reports how many bytes it holds.
type Sized interface {
	Weight() int64
}

// Element is a node in the doubly linked list that holds a value of type T.
// Never touch fields directly outside of List methods.
type Element[T Sized] struct {
	next, prev *Element[T]
	list       *List[T]
	value      T
}

// List returns the list this element belongs to, nil once removed.
func (e *Element[T]) List() *List[T] {
	return e.list
}

// Value returns the value. Immutable after insertion.
func (e *Element[T]) Value() T {
	return e.value
}

func (e *Element[T]) Weight() int64 {
	return e.value.Weight()
}

// List is a generic thread-safe doubly linked list.
type List[T Sized] struct {
	len  int64
	mu   *sync.RWMutex
	root *Element[T]
}

// New creates a new empty list.
func New[T Sized]() *List[T] {
	l := &List[T]{
		mu: &sync.RWMutex{},
	}
	l.init()
	return l
}

func (l *List[T]) init() *List[T] {
	root := &Element[T]{}
	l.root = root
	l.root.next = l.root
	l.root.prev = l.root
	l.len = 0
	return l
}

// Len returns the list length (O(1)).
func (l *List[T]) Len() int {
	return int(atomic.LoadInt64(&l.len))
}

func (l *List[T]) insert(e, at *Element[T]) *Element[T] {
	e.prev = at
	e.next = at.next
	at.next.prev = e
	at.next = e
	e.list = l
	atomic.AddInt64(&l.len, 1)
	return e
}

func (l *List[T]) remove(e *Element[T]) T {
	e.prev.next = e.next
	e.next.prev = e.prev
	val := e.value
	e.next = nil
	e.prev = nil
	e.list = nil
	atomic.AddInt64(&l.len, -1)
	return val
}

// Remove removes e from l and returns its value. A foreign or already removed element is ignored.
func (l *List[T]) Remove(e *Element[T]) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e == nil || e.list != l {
		var zero T
		return zero
	}
	return l.remove(e)
}

// PushFront inserts v at the front and returns new element.
func (l *List[T]) PushFront(v T) *Element[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insert(&Element[T]{value: v}, l.root)
}

// PushBack inserts v at the back and returns new element.
func (l *List[T]) PushBack(v T) *Element[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insert(&Element[T]{value: v}, l.root.prev)
}

// Back returns the last element in the list or nil if the list is empty.
func (l *List[T]) Back() *Element[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.len == 0 {
		return nil
	}
	return l.root.prev
}

// MoveToFront moves e to the front of the list.
func (l *List[T]) MoveToFront(e *Element[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e == nil || e.list != l || e == l.root.next {
		return
	}

	// detach
	e.prev.next = e.next
	e.next.prev = e.prev

	// right after root
	e.prev = l.root
	e.next = l.root.next
	l.root.next.prev = e
	l.root.next = e
}

// Walk calls fn from front to back until it returns false.
func (l *List[T]) Walk(fn func(el *Element[T]) (shouldContinue bool)) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for e, n := l.root.next, l.len; n > 0 && e != nil; n, e = n-1, e.next {
		if !fn(e) {
			return
		}
	}
}
