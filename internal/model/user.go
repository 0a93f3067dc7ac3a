// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Username, Email and PhoneNumber are each unique across all rows; the
// UNIQUE constraints live in the users table and the service pre-checks them
// before every insert or update.
//
// WHY json:"-" ON THE SECRETS?
// PasswordHash and Salt must never leave the server. Tagging them "-" means
// even an accidental writeJSON(w, 200, user) cannot leak them.
//
// Timestamps are epoch milliseconds (int64) rather than time.Time so they
// round-trip through JSON and SQLite without timezone surprises.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	PasswordHash string `json:"-"`
	Salt         string `json:"-"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	RoomNumber   string `json:"roomNumber"`
	ProfileImage string `json:"profileImage"`
	Role         int    `json:"role"`
	RegisteredOn int64  `json:"registeredOn"`
	LastLogInOn  int64  `json:"lastLogInOn"`
}

// UserPatch carries the mutable profile fields for an update. An empty
// string means "keep the stored value".
type UserPatch struct {
	Username     string
	Email        string
	PhoneNumber  string
	FirstName    string
	LastName     string
	RoomNumber   string
	ProfileImage string
}

// Claims is the identity embedded in an access token. It is created on
// login and read back on every authenticated request; it is never stored.
type Claims struct {
	Username string    `json:"username"`
	IssuedAt time.Time `json:"iat"`
	ID       string    `json:"id"`
}

// PublicProfile is what any authenticated caller may see about another user.
type PublicProfile struct {
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         int    `json:"role"`
	ProfileImage string `json:"profileImage"`
}

// PrivateProfile is returned only when the caller is looking at themselves.
type PrivateProfile struct {
	PublicProfile
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	RoomNumber  string `json:"roomNumber"`
}

// Public projects u onto the fields visible to other users.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
	}
}

// Private projects u onto the fields visible to its owner.
func (u *User) Private() PrivateProfile {
	return PrivateProfile{
		PublicProfile: u.Public(),
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		RoomNumber:    u.RoomNumber,
	}
}
