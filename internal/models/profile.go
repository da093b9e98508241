package models

// Profile is the identity provider's view of a user, snapshotted once per
// login. It is never persisted directly.
type Profile struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}
