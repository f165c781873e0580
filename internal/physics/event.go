package physics

// ListenerID identifies a subscription so it can be removed later.
type ListenerID uint64

// Event is a multi-cast event with one argument. Listeners run in subscription order.
type Event[T any] struct {
	listeners []listener[T]
	nextID    ListenerID
}

type listener[T any] struct {
	id ListenerID
	fn func(T)
}

// AddListener registers fn and returns its id. A nil fn is ignored and yields 0.
func (e *Event[T]) AddListener(fn func(T)) ListenerID {
	if fn == nil {
		return 0
	}
	e.nextID++
	e.listeners = append(e.listeners, listener[T]{id: e.nextID, fn: fn})
	return e.nextID
}

// RemoveListener drops the listener with id. It returns false for unknown ids.
func (e *Event[T]) RemoveListener(id ListenerID) bool {
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Invoke calls all registered listeners
func (e *Event[T]) Invoke(arg T) {
	for _, l := range e.listeners {
		l.fn(arg)
	}
}
