package session

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "vigil/pkg/domainerrors"
)

// GenerateAccessCode creates a random code suitable for handing to
// candidates out of band. Base32 keeps it typable.
func GenerateAccessCode() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate access code: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// HashAccessCode creates a bcrypt hash of an access code for storage.
func HashAccessCode(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "access code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeBadRequest, "access code is too long")
		}
		return "", fmt.Errorf("could not hash access code: %w", err)
	}
	return string(hashed), nil
}

func verifyAccessCode(code, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid access code")
		}
		return fmt.Errorf("could not verify access code: %w", err)
	}
	return nil
}
