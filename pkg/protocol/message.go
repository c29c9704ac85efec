package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Codec errors.
var (
	ErrMalformedMessage = errors.New("protocol: malformed message")
	ErrEmptyData        = errors.New("protocol: message has no data")
)

// Message is a single protocol frame.
//
// Data is kept raw because the wire carries it in two forms: a JSON value,
// or a JSON string containing encoded JSON (the usual form for
// server-originated frames). Use DataBytes or UnmarshalData to read it.
type Message struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Marshal encodes the message to its wire form.
func (m *Message) Marshal() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %q: %w", m.Event, err)
	}
	return data, nil
}

// Unmarshal decodes a wire frame into a Message.
// A frame that is not a JSON object or has no event name fails with
// ErrMalformedMessage.
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.Event == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrMalformedMessage)
	}
	return &m, nil
}

// DataBytes returns the payload as JSON bytes, unwrapping the
// string-encoded form when the server used it.
func (m *Message) DataBytes() ([]byte, error) {
	if len(m.Data) == 0 {
		return nil, ErrEmptyData
	}
	if m.Data[0] != '"' {
		return m.Data, nil
	}
	var inner string
	if err := json.Unmarshal(m.Data, &inner); err != nil {
		return nil, fmt.Errorf("%w: string data: %v", ErrMalformedMessage, err)
	}
	return []byte(inner), nil
}

// UnmarshalData decodes the payload into v, unwrapping string-encoded data.
func (m *Message) UnmarshalData(v any) error {
	data, err := m.DataBytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %q data: %v", ErrMalformedMessage, m.Event, err)
	}
	return nil
}

// NewMessage builds a message with data marshaled from v.
// A nil v produces a message without a data field.
func NewMessage(event, channel string, v any) (*Message, error) {
	m := &Message{Event: event, Channel: channel}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode %q data: %w", event, err)
		}
		m.Data = data
	}
	return m, nil
}

// Channel name limits.
const (
	// MaxChannelNameLength is the longest channel name servers accept.
	MaxChannelNameLength = 164
)

// ErrInvalidChannelName reports a channel name the server would reject.
var ErrInvalidChannelName = errors.New("protocol: invalid channel name")

// ValidateChannelName checks name against the protocol's length and
// character restrictions (letters, digits, and _ - = @ , . ;).
func ValidateChannelName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidChannelName)
	}
	if len(name) > MaxChannelNameLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidChannelName, name, MaxChannelNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidChannelName, name)
	}
	for _, r := range name {
		if !validChannelRune(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidChannelName, name, r)
		}
	}
	return nil
}

func validChannelRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '_', '-', '=', '@', ',', '.', ';':
		return true
	}
	return false
}
