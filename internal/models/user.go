package models

import (
	"strings"
	"time"
)

type Role string

const (
	RolePatient    Role = "patient"
	RoleResearcher Role = "researcher"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleResearcher
}

type User struct {
	ID               string    `json:"_id" bson:"_id"`
	Username         string    `json:"username" bson:"username"`
	Email            string    `json:"email" bson:"email"`
	PasswordHash     string    `json:"-" bson:"password_hash"`
	Role             Role      `json:"role" bson:"role"`
	MedicalInterests []string  `json:"medicalInterests" bson:"medical_interests"`
	CreatedAt        time.Time `json:"createdAt" bson:"created_at"`
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

type RegisterRequest struct {
	Username         string   `json:"username"`
	Email            string   `json:"email"`
	Password         string   `json:"password"`
	Role             Role     `json:"role"`
	MedicalInterests []string `json:"medicalInterests"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type UpdateInterestsRequest struct {
	UserID           string   `json:"userId"`
	MedicalInterests []string `json:"medicalInterests"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (r *RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Username) == "" {
		errors["username"] = "Username is required"
	}
	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 6 {
		errors["password"] = "Password must be at least 6 characters"
	}
	if !r.Role.Valid() {
		errors["role"] = "Role must be patient or researcher"
	}

	return errors
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}
	if !r.Role.Valid() {
		errors["role"] = "Role must be patient or researcher"
	}

	return errors
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
