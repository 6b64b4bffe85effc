package domain

// Identity is who authored a review: Authenticated or Guest. Each variant has
// its own uniqueness domain per product.
type Identity interface {
	identity()
}

// Authenticated is a signed-in customer.
type Authenticated struct {
	UserID string
}

// Guest is an anonymous customer known only by email and display name.
type Guest struct {
	Email string
	Name  string
}

func (Authenticated) identity() {}
func (Guest) identity()         {}

// VoterKey identifies who cast a helpful vote. Exactly one field is set.
type VoterKey struct {
	UserID    string
	IPAddress string
}

// UserVoter keys a vote by account.
func UserVoter(userID string) VoterKey {
	return VoterKey{UserID: userID}
}

// IPVoter keys an anonymous vote by client address.
func IPVoter(ip string) VoterKey {
	return VoterKey{IPAddress: ip}
}

// IsAnonymous reports whether the vote is keyed by IP address.
func (k VoterKey) IsAnonymous() bool {
	return k.UserID == ""
}

// Kind is "user" or "ip", used as a metrics label.
func (k VoterKey) Kind() string {
	if k.IsAnonymous() {
		return "ip"
	}
	return "user"
}
