package security

import "golang.org/x/crypto/bcrypt"

// BcryptEncoder implements domain.PasswordEncoder.
type BcryptEncoder struct{}

func NewBcryptEncoder() *BcryptEncoder {
	return &BcryptEncoder{}
}

func (e *BcryptEncoder) Hash(raw string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	return string(bytes), err
}

func (e *BcryptEncoder) Compare(hashed, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}
