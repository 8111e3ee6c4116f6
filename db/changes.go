// ABOUTME: Change notification feed for the Store
// ABOUTME: Publishes committed writes to subscribers so open views can reload
package db

import "context"

// Entity names a table of records.
type Entity string

const (
	EntityLeads     Entity = "leads"
	EntityCustomers Entity = "customers"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpMove   Op = "move"
)

// ChangeEvent describes one committed write.
type ChangeEvent struct {
	Entity Entity
	Op     Op
	IDs    []string
	// Origin is the writer's tag from WithOrigin, so a view can skip its own writes.
	Origin string
}

type subscriber struct {
	id int
	fn func(ChangeEvent)
}

type originKey struct{}

// WithOrigin tags writes made with ctx so their change events carry origin.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func originOf(ctx context.Context) string {
	o, _ := ctx.Value(originKey{}).(string)
	return o
}

// SubscribeToChanges registers fn for every committed write and returns a
// function that removes it. Subscribers run synchronously, in registration
// order, on the writer's goroutine and outside any store lock. fn must not
// block or wait on anything the writer may be holding.
func (s *Store) SubscribeToChanges(fn func(ChangeEvent)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) publish(ctx context.Context, entity Entity, op Op, ids []string) {
	s.mu.RLock()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.RUnlock()

	ev := ChangeEvent{Entity: entity, Op: op, IDs: append([]string(nil), ids...), Origin: originOf(ctx)}
	for _, sub := range subs {
		sub.fn(ev)
	}
}
