package domain

import "strings"

// UserProfile is the slice of a customer account that reviews denormalize.
type UserProfile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// DisplayName joins first and last name, falling back to the email.
func (p *UserProfile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}
