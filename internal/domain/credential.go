package domain

import "time"

// Credential is the access/refresh token pair representing one authenticated
// session. Exactly one instance is active per process; it is replaced
// wholesale on refresh and destroyed on logout or an irrecoverable refresh
// failure.
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	SubjectID    string    `json:"subjectId"`
}

// IsZero reports whether no credential is present.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Expired reports whether the access token should be considered expired at
// the given time. The expiry is always compared with a safety buffer so a
// token about to lapse mid-request is refreshed proactively:
// expired when now >= expiresAt - buffer.
func (c Credential) Expired(now time.Time, buffer time.Duration) bool {
	return !now.Before(c.ExpiresAt.Add(-buffer))
}
