package utils

import (
	"github.com/sasha-s/go-deadlock"
)

const SUBSCRIBER_BUFFER = 16

// Topic fans values out to every subscriber. Publishing never blocks: a
// subscriber whose buffer is full misses the value.
type Topic[T any] struct {
	subscribers map[chan T]struct{}
	mutex       deadlock.Mutex
	last        T
	hasLast     bool
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[chan T]struct{}),
	}
}

func (t *Topic[T]) Publish(value T) {
	t.mutex.Lock()
	t.last = value
	t.hasLast = true
	for subscriber := range t.subscribers {
		select {
		case subscriber <- value:
		default:
		}
	}
	t.mutex.Unlock()
}

// Last returns the most recently published value, if there is one.
func (t *Topic[T]) Last() (T, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.last, t.hasLast
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
}

// Subscribe registers a new subscriber. The last published value, if any, is
// delivered first.
func (t *Topic[T]) Subscribe() *Subscriber[T] {
	channel := make(chan T, SUBSCRIBER_BUFFER)
	t.mutex.Lock()
	if t.hasLast {
		channel <- t.last
	}
	t.subscribers[channel] = struct{}{}
	t.mutex.Unlock()

	return &Subscriber[T]{channel, t}
}

func (t *Subscriber[T]) Recv() <-chan T {
	return t.channel
}

func (t *Subscriber[T]) Done() {
	topic := t.topic
	topic.mutex.Lock()
	delete(topic.subscribers, t.channel)
	topic.mutex.Unlock()
}
