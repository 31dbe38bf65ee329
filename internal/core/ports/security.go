package ports

// PasswordHasher hashes passwords one-way and verifies candidates in
// constant time. Verify never panics and returns false on malformed hashes.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenCodec mints and checks signed bearer tokens whose subject is the
// user's email.
type TokenCodec interface {
	Mint(subject string) (string, error)
	SubjectOf(token string) (string, error)
	Validate(token string) bool
}
