package client

import (
	"encoding/json"

	"github.com/pushkit-dev/pushkit/pkg/protocol"
)

// Event is what bound callbacks receive. Data is the frame payload with
// the wire's string-encoding already unwrapped.
type Event struct {
	Channel string
	Name    string
	Data    json.RawMessage
}

// EventHandler is a callback bound to channel events. Handlers run on the
// client's read loop; a handler that blocks delays subsequent frames.
type EventHandler func(Event)

// Channel is one registry entry. At most one exists per name; Subscribe
// returns the existing entry when called again.
//
// Mutable state is guarded by the owning client's lock.
type Channel struct {
	name   string
	kind   protocol.ChannelKind
	client *Client

	subscribed bool
	members    map[string]json.RawMessage // presence channels only
	selfID     string                     // own member id, from auth channel_data
}

// ChannelKind is re-exported for callers that only import this package.
type ChannelKind = protocol.ChannelKind

// Name returns the channel name.
func (ch *Channel) Name() string { return ch.name }

// Kind returns the channel kind.
func (ch *Channel) Kind() protocol.ChannelKind { return ch.kind }

// IsSubscribed reports whether the server has acknowledged the
// subscription on the current connection.
func (ch *Channel) IsSubscribed() bool {
	ch.client.mu.Lock()
	defer ch.client.mu.Unlock()
	return ch.subscribed
}

// Bind registers fn for one event on this channel and returns its handle.
// Binding works before the subscription is acknowledged and even before
// the client connects.
func (ch *Channel) Bind(event string, fn EventHandler) *Binding {
	return ch.client.Bind(ch.name, event, fn)
}

// BindGlobal registers fn for every event on this channel.
func (ch *Channel) BindGlobal(fn EventHandler) *Binding {
	return ch.client.BindGlobal(ch.name, fn)
}

// Unbind removes a binding made on this channel.
func (ch *Channel) Unbind(b *Binding) {
	ch.client.Unbind(b)
}

// UnbindAll removes every binding scoped to this channel.
func (ch *Channel) UnbindAll() {
	ch.client.bindings.removeChannel(ch.name)
}

// Members returns a copy of the presence roster. Empty for non-presence
// channels and whenever no presence subscription is active.
func (ch *Channel) Members() map[string]json.RawMessage {
	ch.client.mu.Lock()
	defer ch.client.mu.Unlock()

	out := make(map[string]json.RawMessage, len(ch.members))
	for id, info := range ch.members {
		out[id] = info
	}
	return out
}

// Member returns one member's info by id.
func (ch *Channel) Member(id string) (json.RawMessage, bool) {
	ch.client.mu.Lock()
	defer ch.client.mu.Unlock()
	info, ok := ch.members[id]
	return info, ok
}

// MemberCount returns the current roster size.
func (ch *Channel) MemberCount() int {
	ch.client.mu.Lock()
	defer ch.client.mu.Unlock()
	return len(ch.members)
}

// Me returns this connection's own member entry on a presence channel.
func (ch *Channel) Me() (json.RawMessage, bool) {
	ch.client.mu.Lock()
	defer ch.client.mu.Unlock()
	if ch.selfID == "" {
		return nil, false
	}
	info, ok := ch.members[ch.selfID]
	return info, ok
}

// applySubscribedLocked marks the channel acknowledged and, for presence
// channels, seeds the roster. Caller holds the client lock.
func (ch *Channel) applySubscribedLocked(pd *protocol.PresenceData) {
	ch.subscribed = true
	if ch.kind != protocol.KindPresence || pd == nil {
		return
	}
	ch.members = make(map[string]json.RawMessage, len(pd.Hash))
	for id, info := range pd.Hash {
		ch.members[id] = info
	}
}

// addMemberLocked records a joining member. Caller holds the client lock.
func (ch *Channel) addMemberLocked(md *protocol.MemberData) {
	if ch.members == nil {
		ch.members = make(map[string]json.RawMessage)
	}
	ch.members[md.UserID] = md.UserInfo
}

// removeMemberLocked records a leaving member. Caller holds the client lock.
func (ch *Channel) removeMemberLocked(md *protocol.MemberData) {
	delete(ch.members, md.UserID)
}

// resetLocked clears connection-scoped state: the acknowledgment and the
// presence roster. Bindings are unaffected. Caller holds the client lock.
func (ch *Channel) resetLocked() {
	ch.subscribed = false
	ch.members = nil
}

// setSelfLocked records our own member id from the auth channel_data.
// Caller holds the client lock.
func (ch *Channel) setSelfLocked(channelData string) {
	if channelData == "" {
		return
	}
	var cd struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal([]byte(channelData), &cd); err == nil && cd.UserID != "" {
		ch.selfID = cd.UserID
	}
}
