package adapter

// IdentityDecoder extracts the user id from a bearer token. Signatures are
// not verified here; the fitness API does that.
type IdentityDecoder interface {
	UserID(token string) (string, error)
}
