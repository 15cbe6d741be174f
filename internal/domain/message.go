package domain

import (
	"math/rand"
	"strconv"
	"time"
)

// SystemSender is the privileged sender used for admin broadcasts.
const SystemSender = "System_Admin"

// BroadcastReceiver addresses a message to every user on the network.
const BroadcastReceiver = "ALL"

type MessageStatus string

const (
	StatusSent MessageStatus = "sent"
	// StatusDelivered exists for wire compatibility but is never set:
	// the transport has no acknowledgements, so a message goes
	// straight from sent to read.
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment is an opaque payload reference. The engine performs no
// size or type validation; callers enforce caps via pkg/validator.
type Attachment struct {
	Kind AttachmentKind `json:"type"`
	URL  string         `json:"url"`
	Name string         `json:"name"`
	Size string         `json:"size,omitempty"`
}

// Message is the atomic unit of conversation. ID, Sender, Receiver and
// Timestamp are immutable after creation; Text, IsEdited, Status and
// Reaction may change afterwards.
type Message struct {
	ID         string        `json:"id"`
	Sender     string        `json:"sender"`
	Receiver   string        `json:"receiver"`
	Text       string        `json:"text"`
	Timestamp  int64         `json:"timestamp"`
	Attachment *Attachment   `json:"attachment,omitempty"`
	Status     MessageStatus `json:"status"`
	IsEdited   bool          `json:"isEdited"`
	Reaction   string        `json:"reaction,omitempty"`
}

const idSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewMessageID returns a time-based id with a random base36 suffix.
// Collision-resistant for a single device's message volume, not
// cryptographically unique.
func NewMessageID() string {
	buf := make([]byte, 9)
	for i := range buf {
		buf[i] = idSuffixAlphabet[rand.Intn(len(idSuffixAlphabet))]
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + string(buf)
}

// NewMessage constructs an outbound message with status sent.
func NewMessage(sender, receiver, text string, attachment *Attachment) *Message {
	return &Message{
		ID:         NewMessageID(),
		Sender:     sender,
		Receiver:   receiver,
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
		Attachment: attachment,
		Status:     StatusSent,
	}
}
