package model

import (
	"strings"
	"time"
)

// MaxPseudoLength bounds pseudo size in bytes.
const MaxPseudoLength = 128

// User is the account record keyed by the identity provider's uid.
// Password is never written by the service; it is read from legacy records
// provisioned with a plaintext credential.
type User struct {
	UID          string    `firestore:"-" bson:"_id"`
	Email        string    `firestore:"email" bson:"email"`
	Pseudo       string    `firestore:"pseudo" bson:"pseudo"`
	PasswordHash string    `firestore:"passwordHash,omitempty" bson:"passwordHash,omitempty"`
	Password     string    `firestore:"password,omitempty" bson:"password,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt" bson:"createdAt"`
}

// Reservation maps a pseudo to the uid that owns it.
type Reservation struct {
	Pseudo string `firestore:"-" bson:"_id"`
	UID    string `firestore:"uid" bson:"uid"`
}

// Session is what register and login hand back to the client.
type Session struct {
	UID    string
	Pseudo string
	Token  string
}

// ValidPseudo reports whether p can key a reservation document.
func ValidPseudo(p string) bool {
	if strings.TrimSpace(p) == "" || len(p) > MaxPseudoLength {
		return false
	}
	if p == "." || p == ".." || strings.Contains(p, "/") {
		return false
	}
	return true
}
