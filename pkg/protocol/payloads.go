package protocol

import (
	"encoding/json"
	"fmt"
)

// ConnectionEstablished is the payload of pusher:connection_established.
type ConnectionEstablished struct {
	// SocketID identifies this connection for auth requests.
	SocketID string `json:"socket_id"`

	// ActivityTimeout is the server's quiet-interval bound in seconds.
	ActivityTimeout int `json:"activity_timeout"`
}

// ParseConnectionEstablished decodes a pusher:connection_established frame.
func ParseConnectionEstablished(m *Message) (*ConnectionEstablished, error) {
	var ce ConnectionEstablished
	if err := m.UnmarshalData(&ce); err != nil {
		return nil, err
	}
	if ce.SocketID == "" {
		return nil, fmt.Errorf("%w: connection_established without socket_id", ErrMalformedMessage)
	}
	return &ce, nil
}

// ErrorData is the payload of pusher:error. Code is zero when the server
// sent none.
type ErrorData struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// ParseErrorData decodes a pusher:error frame. Both the string-encoded and
// plain-object data forms occur in the wild.
func ParseErrorData(m *Message) (*ErrorData, error) {
	var ed ErrorData
	if err := m.UnmarshalData(&ed); err != nil {
		return nil, err
	}
	return &ed, nil
}

// SubscribeData is the payload of pusher:subscribe. Auth and ChannelData
// are set only for private and presence channels.
type SubscribeData struct {
	Channel     string `json:"channel"`
	Auth        string `json:"auth,omitempty"`
	ChannelData string `json:"channel_data,omitempty"`
}

// UnsubscribeData is the payload of pusher:unsubscribe.
type UnsubscribeData struct {
	Channel string `json:"channel"`
}

// SigninData is the payload of pusher:signin.
type SigninData struct {
	Auth     string `json:"auth"`
	UserData string `json:"user_data"`
}

// SigninSuccess is the payload of pusher:signin_success.
type SigninSuccess struct {
	UserData string `json:"user_data"`
}

// PresenceData is the member roster delivered with a presence channel's
// subscription_succeeded frame, wrapped in a {"presence": ...} envelope.
type PresenceData struct {
	Count int                        `json:"count"`
	IDs   []string                   `json:"ids"`
	Hash  map[string]json.RawMessage `json:"hash"`
}

type presenceEnvelope struct {
	Presence PresenceData `json:"presence"`
}

// ParsePresenceData decodes the roster from a subscription_succeeded frame.
// Frames for non-presence channels have no envelope and yield an empty
// roster.
func ParsePresenceData(m *Message) (*PresenceData, error) {
	if len(m.Data) == 0 {
		return &PresenceData{}, nil
	}
	var env presenceEnvelope
	if err := m.UnmarshalData(&env); err != nil {
		return nil, err
	}
	return &env.Presence, nil
}

// MemberData is the payload of member_added and member_removed frames.
// UserInfo is absent on removal.
type MemberData struct {
	UserID   string          `json:"user_id"`
	UserInfo json.RawMessage `json:"user_info,omitempty"`
}

// ParseMemberData decodes a member_added or member_removed frame.
func ParseMemberData(m *Message) (*MemberData, error) {
	var md MemberData
	if err := m.UnmarshalData(&md); err != nil {
		return nil, err
	}
	if md.UserID == "" {
		return nil, fmt.Errorf("%w: member event without user_id", ErrMalformedMessage)
	}
	return &md, nil
}

// EncodeSubscribe builds a pusher:subscribe frame.
func EncodeSubscribe(channel, auth, channelData string) ([]byte, error) {
	m, err := NewMessage(EventSubscribe, "", SubscribeData{
		Channel:     channel,
		Auth:        auth,
		ChannelData: channelData,
	})
	if err != nil {
		return nil, err
	}
	return m.Marshal()
}

// EncodeUnsubscribe builds a pusher:unsubscribe frame.
func EncodeUnsubscribe(channel string) ([]byte, error) {
	m, err := NewMessage(EventUnsubscribe, "", UnsubscribeData{Channel: channel})
	if err != nil {
		return nil, err
	}
	return m.Marshal()
}

// EncodeSignin builds a pusher:signin frame.
func EncodeSignin(auth, userData string) ([]byte, error) {
	m, err := NewMessage(EventSignin, "", SigninData{Auth: auth, UserData: userData})
	if err != nil {
		return nil, err
	}
	return m.Marshal()
}

// EncodePing builds a pusher:ping frame. The empty data object matches
// what reference clients send.
func EncodePing() []byte {
	return []byte(`{"event":"pusher:ping","data":{}}`)
}

// EncodePong builds a pusher:pong frame.
func EncodePong() []byte {
	return []byte(`{"event":"pusher:pong","data":{}}`)
}
