package models

import "time"

// Session is the client's view of who is signed in.
type Session struct {
	User          *Identity  `json:"user"`
	Loading       bool       `json:"loading"`
	LastLoginTime *time.Time `json:"lastLoginTime,omitempty"`
}

// SignedIn reports whether the session carries a user.
func (s Session) SignedIn() bool { return s.User != nil }

// Clone returns a deep copy so observers cannot mutate the owner's state.
func (s Session) Clone() Session {
	c := Session{User: s.User.Clone(), Loading: s.Loading}
	if s.LastLoginTime != nil {
		t := *s.LastLoginTime
		c.LastLoginTime = &t
	}
	return c
}
