package remote

// StaticIdentity is a fixed user id and token, typically read from config.
type StaticIdentity struct {
	User        string
	BearerToken string
}

func (s StaticIdentity) UserID() string { return s.User }
func (s StaticIdentity) Token() string  { return s.BearerToken }
