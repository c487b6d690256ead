package models

import (
	"encoding/json"
	"strings"
)

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Username        string  `json:"username" validate:"required,min=3,max=30,username"`
	Password        string  `json:"password" validate:"required,password"`
	Email           *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName       string  `json:"firstName" validate:"required,notblank,max=100"`
	LastName        *string `json:"lastName" validate:"omitempty,max=100"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,url,max=2048"`
}

// LoginInput carries sign-in credentials.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
}

// UpdateUserInput is a partial profile update; absent fields are left alone.
type UpdateUserInput struct {
	Username        *string `json:"username" validate:"omitnil,min=3,max=30,username"`
	Email           *string `json:"email" validate:"omitnil,email,max=254"`
	FirstName       *string `json:"firstName" validate:"omitnil,notblank,max=100"`
	LastName        *string `json:"lastName" validate:"omitnil,max=100"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,url,max=2048"`
}

// Patch converts the input into a store-level patch.
func (in UpdateUserInput) Patch() UserPatch {
	return UserPatch{
		Username:        in.Username,
		Email:           in.Email,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		ProfileImageURL: in.ProfileImageURL,
	}
}

// CreateLocationInput is the save-favorite payload. Latitude/longitude may
// also be sent as lat/lon.
type CreateLocationInput struct {
	Name      string   `json:"name" validate:"required,notblank,max=200"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Country   *string  `json:"country" validate:"omitempty,max=100"`
	Admin1    *string  `json:"admin1" validate:"omitempty,max=100"`
	UserID    *int     `json:"userId" validate:"omitnil,gt=0"`
}

func (in *CreateLocationInput) UnmarshalJSON(b []byte) error {
	type plain CreateLocationInput
	var aux struct {
		plain
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*in = CreateLocationInput(aux.plain)
	if in.Latitude == nil {
		in.Latitude = aux.Lat
	}
	if in.Longitude == nil {
		in.Longitude = aux.Lon
	}
	return nil
}

// Location builds the row to insert. Call after Validate.
func (in CreateLocationInput) Location() Location {
	loc := Location{
		Name:    strings.TrimSpace(in.Name),
		Country: BlankToNil(in.Country),
		Admin1:  BlankToNil(in.Admin1),
		UserID:  in.UserID,
	}
	if in.Latitude != nil {
		loc.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		loc.Longitude = *in.Longitude
	}
	return loc
}

// AdviceInput is the weather-advice payload. Weather is relayed to the
// prompt as-is.
type AdviceInput struct {
	Question string          `json:"question" validate:"required,notblank,max=1000"`
	Weather  json.RawMessage `json:"weather"`
	Location *Place          `json:"location"`
}

// BlankToNil trims optional text; nil and whitespace-only become nil.
func BlankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
