package models

// Identity is an authenticated principal as reported by the identity store.
type Identity struct {
	Subject string
	Roles   []string
}

// IdentityResult is the answer to a credential check. It is either
// authenticated, carrying an Identity, or rejected, carrying a reason.
type IdentityResult struct {
	identity *Identity
	reason   string
}

// Authenticated builds a successful result. Nil roles are normalised to empty.
func Authenticated(subject string, roles []string) IdentityResult {
	if roles == nil {
		roles = []string{}
	}
	return IdentityResult{identity: &Identity{Subject: subject, Roles: roles}}
}

// Rejected builds a failed result.
func Rejected(reason string) IdentityResult {
	if reason == "" {
		reason = "rejected"
	}
	return IdentityResult{reason: reason}
}

// IsAuthenticated reports whether the credentials were accepted.
func (r IdentityResult) IsAuthenticated() bool {
	return r.identity != nil
}

// Identity returns the principal, or nil for a rejected result.
func (r IdentityResult) Identity() *Identity {
	return r.identity
}

// Reason returns why the credentials were rejected, or "" when authenticated.
func (r IdentityResult) Reason() string {
	return r.reason
}
