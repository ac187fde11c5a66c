package session

// Session is the identity a request runs under. It is either Guest or Authenticated;
// remote cart sync only happens for Authenticated sessions.
type Session interface {
	// Key identifies the session for per-session state such as the cart reconciler.
	Key() string
	isSession()
}

// Guest is an anonymous visitor identified by a device id.
type Guest struct {
	DeviceID string
}

func (g Guest) Key() string { return "guest:" + g.DeviceID }

func (Guest) isSession() {}

// Authenticated carries the resolved user. Profile is nil when the user has not created one yet.
type Authenticated struct {
	UserID  string
	Email   string
	Profile *Profile
}

func (a Authenticated) Key() string { return "user:" + a.UserID }

func (Authenticated) isSession() {}

// Profile is the customer profile as cached for a session.
type Profile struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Address       string `json:"address,omitempty"`
	CurrentCartID string `json:"current_cart_id,omitempty"`
}

// UserID returns the authenticated user id, or an empty string for guests and nil sessions.
func UserID(s Session) string {
	if auth, ok := s.(Authenticated); ok {
		return auth.UserID
	}
	return ""
}

// IsAuthenticated reports whether s is an authenticated session.
func IsAuthenticated(s Session) bool {
	_, ok := s.(Authenticated)
	return ok
}
