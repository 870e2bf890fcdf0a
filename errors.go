package msgstore

import (
	"errors"

	"github.com/meow-io/go-msgstore/crypto"
)

var (
	// Returned from create calls when the identity, or any other unique index
	// value, is already present.
	ErrDuplicateIdentity = errors.New("msgstore: identity already exists")
	// Returned from update/remove/fetch calls addressing a missing identity.
	ErrNotFound = errors.New("msgstore: record not found")
	// Returned from any operation attempted after Close.
	ErrStoreClosed = errors.New("msgstore: store closed")
	// A sealed record failed its integrity check. Treated as data corruption,
	// never retried and never returned partially.
	ErrAuthentication = crypto.ErrAuthentication
)
