package models

// Identity is the tuple the identity provider yields on sign-in. The core
// never persists credentials, only this tuple.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

// TeamMember is a roster entry, upserted on every sign-in and used for
// avatar/name resolution across the board.
type TeamMember struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
	LastSignIn  int64  `json:"lastSignIn"`
}

// Member converts an identity to its roster representation.
func (i Identity) Member(nowMillis int64) *TeamMember {
	return &TeamMember{
		UID:         i.ID,
		DisplayName: i.DisplayName,
		Email:       i.Email,
		PhotoURL:    i.PhotoURL,
		LastSignIn:  nowMillis,
	}
}
