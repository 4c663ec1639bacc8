package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshTokenRecord is one outstanding refresh token held by a principal.
// The token string is the signed refresh JWT handed to the client; keeping
// it server-side allows revocation before its embedded expiry.
type RefreshTokenRecord struct {
	Token     string    `bson:"token" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"-"`
}

// User is a customer account. Password and the refresh-token list never
// appear in JSON responses.
type User struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username      string               `bson:"username" json:"username"`
	Email         string               `bson:"email" json:"email"`
	Password      string               `bson:"password" json:"-"`
	FirstName     string               `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName      string               `bson:"lastName,omitempty" json:"lastName,omitempty"`
	PhoneNumber   string               `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	IsActive      bool                 `bson:"isActive" json:"isActive"`
	RefreshTokens []RefreshTokenRecord `bson:"refreshTokens" json:"-"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasRefreshToken reports whether the given refresh token is still on the
// user's outstanding list.
func (u *User) HasRefreshToken(token string) bool {
	for _, rt := range u.RefreshTokens {
		if rt.Token == token {
			return true
		}
	}
	return false
}
