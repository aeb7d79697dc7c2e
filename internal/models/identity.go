package models

// Identity is the set of claims extracted from a verified Google Sign-In
// credential. It is embedded in session tokens and never persisted on its own.
type Identity struct {
	SubjectID string `json:"userId"`  // Stable provider-assigned identifier (the "sub" claim)
	Email     string `json:"email"`   // User email
	Name      string `json:"name"`    // Display name
	AvatarURL string `json:"picture"` // Profile picture URL
}
