package types

// Profile is the customer record returned by the remote service at login.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Image     string `json:"image,omitempty"`
}

// FullName joins the profile's name parts for display and order payloads.
func (p Profile) FullName() string {
	switch {
	case p.FirstName == "" && p.LastName == "":
		return ""
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// ProfilePatch carries the editable profile fields for an update round trip.
// Nil fields are left untouched.
type ProfilePatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Image     *string `json:"image,omitempty"`
}

// Session is the in-memory representation of the authenticated user. It is
// owned exclusively by the session manager; everything else reads copies.
type Session struct {
	AccessToken  string
	RefreshToken string
	Profile      *Profile
}

// Authenticated holds iff both an access token and a profile are present.
// A token without a profile (or the reverse) is never a valid session.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.Profile != nil
}
