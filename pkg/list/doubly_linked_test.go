package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item int64

func (i item) Weight() int64 { return int64(i) }

func values(l *List[item]) []item {
	var out []item
	l.Walk(func(el *Element[item]) bool {
		out = append(out, el.Value())
		return true
	})
	return out
}

func TestPushAndRemove(t *testing.T) {
	l := New[item]()
	assert.Nil(t, l.Back())

	a := l.PushBack(1)
	l.PushBack(2)
	c := l.PushFront(3)

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []item{3, 1, 2}, values(l))
	assert.Equal(t, item(2), l.Back().Value())

	assert.Equal(t, item(1), l.Remove(a))
	assert.Nil(t, a.List())
	assert.Equal(t, item(0), l.Remove(a), "second remove is ignored")
	assert.Equal(t, 2, l.Len())

	l.Remove(c)
	assert.Equal(t, []item{2}, values(l))
}

func TestMoveToFront(t *testing.T) {
	l := New[item]()
	l.PushBack(1)
	l.PushBack(2)
	c := l.PushBack(3)

	l.MoveToFront(c)
	assert.Equal(t, []item{3, 1, 2}, values(l))
	assert.Equal(t, item(2), l.Back().Value())

	l.MoveToFront(c)
	assert.Equal(t, []item{3, 1, 2}, values(l))

	other := New[item]()
	foreign := other.PushBack(9)
	l.MoveToFront(foreign)
	assert.Equal(t, 3, l.Len())
}
