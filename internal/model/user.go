package model

import "time"

// Staff roles.  Admins manage users and settings; hostesses work with
// guests, bookings and broadcasts.
const (
	RoleAdmin    = "admin"
	RoleHostess1 = "hostess_1"
	RoleHostess2 = "hostess_2"
)

// StaffRoles lists every role allowed to sign in.
func StaffRoles() []string {
	return []string{RoleAdmin, RoleHostess1, RoleHostess2}
}

// ValidRole reports whether r is a known staff role.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleHostess1, RoleHostess2:
		return true
	}
	return false
}

// User represents a CRM staff account as stored in the `users` table.
// PasswordHash never leaves the server.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of admin, hostess_1, hostess_2.
//  DisplayName  – name shown in the activity journal.
//  CreatedAt    – timestamp of creation (nullable for legacy rows).
type User struct {
	ID           uint64     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	DisplayName  string     `json:"display_name"`
	CreatedAt    *time.Time `json:"created_at"`
}
