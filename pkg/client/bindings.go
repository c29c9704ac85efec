package client

import "sync"

// Binding is the handle returned by Bind. Keep it to unbind later.
type Binding struct {
	channel string
	event   string // empty for channel-wide bindings
	fn      EventHandler
	id      uint64
}

// Channel returns the channel name the binding is scoped to.
func (b *Binding) Channel() string { return b.channel }

// Event returns the bound event name, empty for channel-wide bindings.
func (b *Binding) Event() string { return b.event }

type bindKey struct {
	channel string
	event   string
}

// bindingTable stores listener sets keyed by (channel, event), each in
// insertion order. It outlives Channel entries so bindings made before a
// subscribe, or kept across unsubscribe cycles, stay registered.
type bindingTable struct {
	mu   sync.Mutex
	seq  uint64
	sets map[bindKey][]*Binding
}

func newBindingTable() *bindingTable {
	return &bindingTable{sets: make(map[bindKey][]*Binding)}
}

// add registers fn and returns its handle. An empty event registers a
// channel-wide binding.
func (t *bindingTable) add(channel, event string, fn EventHandler) *Binding {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	b := &Binding{channel: channel, event: event, fn: fn, id: t.seq}
	key := bindKey{channel: channel, event: event}
	t.sets[key] = append(t.sets[key], b)
	return b
}

// remove deletes a binding. Removing twice, or removing a binding that
// was never added, is a no-op.
func (t *bindingTable) remove(b *Binding) {
	if b == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := bindKey{channel: b.channel, event: b.event}
	set := t.sets[key]
	for i, cur := range set {
		if cur.id == b.id {
			t.sets[key] = append(set[:i:i], set[i+1:]...)
			break
		}
	}
	if len(t.sets[key]) == 0 {
		delete(t.sets, key)
	}
}

// removeChannel drops every binding scoped to channel.
func (t *bindingTable) removeChannel(channel string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.sets {
		if key.channel == channel {
			delete(t.sets, key)
		}
	}
}

// snapshot returns the callbacks to invoke for one event: the per-event
// set in insertion order, then the channel-wide set. The copy lets
// dispatch run without holding the table lock.
func (t *bindingTable) snapshot(channel, event string) []*Binding {
	t.mu.Lock()
	defer t.mu.Unlock()

	scoped := t.sets[bindKey{channel: channel, event: event}]
	wide := t.sets[bindKey{channel: channel}]
	if len(scoped) == 0 && len(wide) == 0 {
		return nil
	}
	out := make([]*Binding, 0, len(scoped)+len(wide))
	out = append(out, scoped...)
	out = append(out, wide...)
	return out
}
