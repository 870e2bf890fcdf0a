package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Makes a 32-byte master key from a passphrase and a persisted salt.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Splits a master key into two independent subkeys, one for the database file
// and one for record envelopes.
func SplitKey(master []byte) (dbKey, envelopeKey []byte, err error) {
	if len(master) != KeySize {
		panic("key is wrong length")
	}
	kdf := hkdf.New(sha256.New, master, nil, []byte("msgstore-keys"))
	dbKey = make([]byte, KeySize)
	if _, err = io.ReadFull(kdf, dbKey); err != nil {
		return nil, nil, err
	}
	envelopeKey = make([]byte, KeySize)
	if _, err = io.ReadFull(kdf, envelopeKey); err != nil {
		return nil, nil, err
	}
	return dbKey, envelopeKey, nil
}
