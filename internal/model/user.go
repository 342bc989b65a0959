package model

import (
	"encoding/json"
	"time"
)

// Role separates administrators from registered institution users.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the authenticated account profile.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	InstitutionName string    `json:"institutionName,omitempty"`
	ContactPerson   string    `json:"contactPerson,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Address         string    `json:"address,omitempty"`
	City            string    `json:"city,omitempty"`
	State           string    `json:"state,omitempty"`
	Pincode         string    `json:"pincode,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// IsAdmin reports whether u may review and manage every circular.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UnmarshalJSON accepts `_id` as an alias for `id`.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var w struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*u = User(w.plain)
	if u.ID == "" {
		u.ID = w.MongoID
	}
	return nil
}

// Institution holds the optional profile metadata sent on signup and profile
// updates. Nil fields are left untouched by a profile update.
type Institution struct {
	InstitutionName *string `json:"institutionName,omitempty"`
	ContactPerson   *string `json:"contactPerson,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Address         *string `json:"address,omitempty"`
	City            *string `json:"city,omitempty"`
	State           *string `json:"state,omitempty"`
	Pincode         *string `json:"pincode,omitempty"`
}

// Apply copies every set field of in onto u.
func (in Institution) Apply(u *User) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.InstitutionName, in.InstitutionName)
	set(&u.ContactPerson, in.ContactPerson)
	set(&u.Phone, in.Phone)
	set(&u.Address, in.Address)
	set(&u.City, in.City)
	set(&u.State, in.State)
	set(&u.Pincode, in.Pincode)
}
