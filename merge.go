package users

import "time"

// UserUpdate is a sparse account update. A nil field means "leave the
// existing value alone"; a non-nil field overwrites, even when it
// points at a zero value. The boundary decodes requests into pointers
// precisely so that "omitted" and "present but empty" stay distinct.
type UserUpdate struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Username  *string    `json:"username"`
	Email     *string    `json:"email"`
	Password  *string    `json:"password"`
	BirthDate *time.Time `json:"birth_date"`
	Address   *string    `json:"address"`
	Phone     *string    `json:"phone_number"`
}

// Apply merges the update into target, field by field. Pure function,
// no I/O; target is copied, never mutated.
func (r UserUpdate) Apply(target User) User {
	if r.FirstName != nil {
		target.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		target.LastName = *r.LastName
	}
	if r.Username != nil {
		target.Username = *r.Username
	}
	if r.Email != nil {
		target.Email = *r.Email
	}
	if r.BirthDate != nil {
		target.BirthDate = DateOnly(*r.BirthDate)
	}
	if r.Address != nil {
		target.Address = *r.Address
	}
	if r.Phone != nil {
		target.Phone = *r.Phone
	}
	return target
}

// PlainPassword returns the plaintext password carried by the update,
// or "" when the request did not touch the password. The Service
// treats "" as "keep the stored hash".
func (r UserUpdate) PlainPassword() string {
	if r.Password == nil {
		return ""
	}
	return *r.Password
}
