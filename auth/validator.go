package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"messenger-lab/domain"
	"messenger-lab/errors"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required,min=3,max=32"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=12,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}

// Register validates the request and mints a new user with a hashed
// password. The hash is returned separately so callers decide where
// credentials live.
func Register(req RegisterRequest) (domain.User, string, error) {
	if err := ValidateRegister(req); err != nil {
		return domain.User{}, "", err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", err
	}
	user := domain.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Email:    req.Email,
	}
	return user, hash, nil
}
