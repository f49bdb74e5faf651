package event

import (
	"log/slog"
	"sync"
)

type HandlerFunc func(raw any)

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]HandlerFunc),
	}
}

func (b *Bus) Subscribe(eventName string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish calls every handler on the caller's goroutine, in subscription
// order. Handlers run inside the simulation step and must not block.
func (b *Bus) Publish(eventName string, evt any) {
	for _, handler := range b.snapshot(eventName) {
		invoke(eventName, handler, evt)
	}
}

func (b *Bus) snapshot(eventName string) []HandlerFunc {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]HandlerFunc, len(b.handlers[eventName]))
	copy(handlers, b.handlers[eventName])
	return handlers
}

func invoke(eventName string, h HandlerFunc, evt any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", eventName, "panic", r)
		}
	}()
	h(evt)
}
