package events

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// EventHandler is a callback receiving events of type T. A returned error is reported to the publisher.
type EventHandler[T any] func(T) error

// globalEventHandlers maps an event type name to the handlers subscribed to every emitter of that type.
var globalEventHandlers = make(map[string][]any)

// globalEventHandlersLock guards globalEventHandlers.
var globalEventHandlersLock sync.RWMutex

func eventTypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// SubscribeAny adds an EventHandler which receives events of type T published by any EventEmitter.
// Note: handlers subscribed here live for the rest of the program.
func SubscribeAny[T any](callback EventHandler[T]) {
	name := eventTypeName[T]()

	globalEventHandlersLock.Lock()
	defer globalEventHandlersLock.Unlock()
	globalEventHandlers[name] = append(globalEventHandlers[name], callback)
}

// EventEmitter publishes events of type T to its subscribers and to the global handlers for T. The zero value is
// ready to use, and an EventEmitter may be published to from several goroutines.
type EventEmitter[T any] struct {
	lock          sync.RWMutex
	subscriptions []EventHandler[T]
}

// Publish calls every subscribed EventHandler, then every global handler for T, in subscription order. Every handler
// is called even if an earlier one fails; the first error is returned.
func (e *EventEmitter[T]) Publish(event T) error {
	e.lock.RLock()
	handlers := make([]EventHandler[T], len(e.subscriptions))
	copy(handlers, e.subscriptions)
	e.lock.RUnlock()

	globalEventHandlersLock.RLock()
	globals := globalEventHandlers[eventTypeName[T]()]
	globalEventHandlersLock.RUnlock()
	for _, global := range globals {
		handlers = append(handlers, global.(EventHandler[T]))
	}

	var firstErr error
	for _, handler := range handlers {
		if err := handler(event); err != nil && firstErr == nil {
			firstErr = errors.WithStack(err)
		}
	}
	return firstErr
}

// Subscribe adds an EventHandler to this emitter.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.subscriptions = append(e.subscriptions, callback)
}

// SubscriberCount returns the number of handlers subscribed to this emitter.
func (e *EventEmitter[T]) SubscriberCount() int {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return len(e.subscriptions)
}
