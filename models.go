package msgstore

import "github.com/google/uuid"

// Sort order for ListChatMessages.
type SortMode int

const (
	Ascending SortMode = iota
	Descending
)

// Every model carries Props, the serialized mutable payload handed over by the
// messaging engine. The store seals Props before writing and unseals it on
// read; it never interprets the contents. Identity is immutable after
// creation.

type ContactModel struct {
	ID    uuid.UUID
	Props []byte
}

type ConversationModel struct {
	ID    uuid.UUID
	Props []byte
}

type DeviceIdentityModel struct {
	ID    uuid.UUID
	Props []byte
}

type JobModel struct {
	ID    uuid.UUID
	Props []byte
}

// A chat message duplicates four fields out of its payload as plaintext index
// columns so they can be filtered and sorted without decryption. Order is the
// per-(conversation, sender-device) sequence number; RemoteID deduplicates
// messages arriving from a remote source. Index fields never change after
// creation, only Props does.
type ChatMessageModel struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       int
	Order          int
	RemoteID       string
	Props          []byte
}
