package domain

type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
	PresenceBusy    Presence = "busy"
)

// Valid reports whether p is one of the three known presence states.
func (p Presence) Valid() bool {
	switch p {
	case PresenceOnline, PresenceOffline, PresenceBusy:
		return true
	}
	return false
}

// DirectoryEntry is a registered user. Name is the unique key. Status
// is a static fallback only; live presence overlays it at read time.
type DirectoryEntry struct {
	Name   string   `json:"name"`
	Avatar string   `json:"avatar,omitempty"`
	Bio    string   `json:"bio,omitempty"`
	Status Presence `json:"status"`
	IsAI   bool     `json:"isAi"`
}

// Contact is a directory entry decorated with the live, block-aware
// status a viewer should render, plus the denormalized dashboard
// preview fields. The engine never maintains the preview fields;
// callers update them through the contacts cache.
type Contact struct {
	Name          string   `json:"name"`
	Avatar        string   `json:"avatar,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	Status        Presence `json:"status"`
	IsAI          bool     `json:"isAi"`
	LastMessage   string   `json:"lastMessage,omitempty"`
	LastTimestamp int64    `json:"lastTimestamp,omitempty"`
}
