package behavior

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// Key identifies a visibility record. It is the marker GUID, or for
// per-character modes the GUID XOR'd with the character hash.
type Key = uuid.UUID

// CharacterHash maps a character name onto a GUID (MD5 of the UTF-8 name).
// Persisted per-character records depend on this exact derivation.
func CharacterHash(character string) uuid.UUID {
	return uuid.UUID(md5.Sum([]byte(character)))
}

// Xor returns the byte-wise XOR of two GUIDs.
func Xor(a, b uuid.UUID) uuid.UUID {
	var out uuid.UUID
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// DeriveKey returns the store key for a marker under mode.
func DeriveKey(mode Mode, id uuid.UUID, character string) Key {
	if mode == OnceDailyPerCharacter {
		return Xor(id, CharacterHash(character))
	}
	return id
}
