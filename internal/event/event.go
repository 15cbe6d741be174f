// Package event defines the closed set of events carried by the
// broadcast transport. Every frame on the wire is an envelope with a
// type discriminator and a typed payload; decoding yields one of the
// concrete event types below, so consumers can switch exhaustively.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/calcvault/core/internal/domain"
)

type Kind string

const (
	KindChatMessage    Kind = "CHAT_MESSAGE"
	KindPresenceUpdate Kind = "PRESENCE_UPDATE"
	KindReadReceipt    Kind = "READ_RECEIPT"
	KindMessageEdit    Kind = "MESSAGE_EDIT"
	KindUserJoined     Kind = "USER_JOINED"
)

var ErrUnknownKind = errors.New("unknown event kind")

// Event is implemented by exactly the five concrete event types.
type Event interface {
	Kind() Kind
}

// ChatMessage announces a sent message, carrying the full record.
type ChatMessage struct {
	Message domain.Message
}

func (ChatMessage) Kind() Kind { return KindChatMessage }

// PresenceUpdate announces a user's status change.
type PresenceUpdate struct {
	Username string          `json:"username"`
	Status   domain.Presence `json:"status"`
}

func (PresenceUpdate) Kind() Kind { return KindPresenceUpdate }

// ReadReceipt announces that Reader has read every message
// OriginalSender sent them.
type ReadReceipt struct {
	Reader         string `json:"reader"`
	OriginalSender string `json:"originalSender"`
}

func (ReadReceipt) Kind() Kind { return KindReadReceipt }

// MessageEdit announces a text change to an existing message.
type MessageEdit struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (MessageEdit) Kind() Kind { return KindMessageEdit }

// UserJoined announces a new or returning user so every listening
// context can register them in its local directory.
type UserJoined struct {
	Entry domain.DirectoryEntry
}

func (UserJoined) Kind() Kind { return KindUserJoined }

// envelope is the wire form: a type tag plus raw payload.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
	TS      int64           `json:"ts,omitempty"`
}

// Encode marshals ev into its wire envelope.
func Encode(ev Event) ([]byte, error) {
	var payload any
	switch e := ev.(type) {
	case ChatMessage:
		payload = e.Message
	case PresenceUpdate:
		payload = e
	case ReadReceipt:
		payload = e
	case MessageEdit:
		payload = e
	case UserJoined:
		payload = e.Entry
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, ev)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Type:    ev.Kind(),
		Payload: data,
		TS:      time.Now().UnixMilli(),
	})
}

// Decode parses a wire envelope into its concrete event. Frames with
// an unrecognized type tag fail with ErrUnknownKind so callers can
// drop them without touching any state.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case KindChatMessage:
		var msg domain.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, err
		}
		return ChatMessage{Message: msg}, nil
	case KindPresenceUpdate:
		var e PresenceUpdate
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case KindReadReceipt:
		var e ReadReceipt
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case KindMessageEdit:
		var e MessageEdit
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case KindUserJoined:
		var entry domain.DirectoryEntry
		if err := json.Unmarshal(env.Payload, &entry); err != nil {
			return nil, err
		}
		return UserJoined{Entry: entry}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
}
