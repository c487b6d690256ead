package models

import "time"

// User is the persisted account record.
type User struct {
	ID              int       `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"` // don’t expose hash
	Email           *string   `json:"email"`
	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	TokenVersion    int       `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID              int       `json:"id"`
	Username        string    `json:"username"`
	Email           *string   `json:"email"`
	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	ProfileImageURL *string   `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Public strips credentials and session state from u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// UserPatch lists the profile columns an update may touch. Nil means unchanged.
type UserPatch struct {
	Username        *string
	Email           *string
	FirstName       *string
	LastName        *string
	ProfileImageURL *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil &&
		p.LastName == nil && p.ProfileImageURL == nil
}
