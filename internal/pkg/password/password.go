package password

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	appErr "github.com/xxxsen/bmark/internal/pkg/errors"
)

const MinLength = 8

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	if hash == "" {
		// oauth-only accounts have no local password
		return appErr.ErrUnauthorized
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

func Validate(plain string) error {
	if utf8.RuneCountInString(plain) < MinLength {
		return appErr.ErrInvalid
	}
	return nil
}
