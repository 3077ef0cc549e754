package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dimitrije/personal-secrets/internal/models"
)

const (
	minNameLength     = 5
	maxNameLength     = 100
	minValueLength    = 2
	minPasswordLength = 12
	cardNumberLength  = 16
	cvvLength         = 3

	// ExpiryDateLayout is how CreditCard.ExpiryDate is written.
	ExpiryDateLayout = "2006-01-02"
)

var ErrInvalidValue = errors.New("invalid secret")

// Value is the plaintext shape stored in the value field of one secret type.
type Value interface {
	Type() models.SecretType
	Validate(now time.Time) error
}

type WebLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (WebLogin) Type() models.SecretType { return models.SecretTypeWebLogin }

func (v WebLogin) Validate(time.Time) error {
	if utf8.RuneCountInString(v.Username) < 1 {
		return fmt.Errorf("%w: username must be at least 1 character", ErrInvalidValue)
	}
	if utf8.RuneCountInString(v.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidValue, minPasswordLength)
	}
	return nil
}

type CreditCard struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

func (CreditCard) Type() models.SecretType { return models.SecretTypeCreditCard }

func (v CreditCard) Validate(now time.Time) error {
	if len(v.CardNumber) != cardNumberLength || !digitsOnly(v.CardNumber) {
		return fmt.Errorf("%w: card number must be %d digits", ErrInvalidValue, cardNumberLength)
	}
	if len(v.CVV) != cvvLength || !digitsOnly(v.CVV) {
		return fmt.Errorf("%w: CVV must be %d digits", ErrInvalidValue, cvvLength)
	}
	expiry, err := time.Parse(ExpiryDateLayout, v.ExpiryDate)
	if err != nil {
		return fmt.Errorf("%w: expiry date must look like %s", ErrInvalidValue, ExpiryDateLayout)
	}
	if !expiry.After(now) {
		return fmt.Errorf("%w: expiry date must be in the future", ErrInvalidValue)
	}
	return nil
}

type SecureNote struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (SecureNote) Type() models.SecretType { return models.SecretTypeSecureNote }

func (v SecureNote) Validate(time.Time) error {
	if utf8.RuneCountInString(v.Title) < 1 {
		return fmt.Errorf("%w: title must be at least 1 character", ErrInvalidValue)
	}
	if utf8.RuneCountInString(v.Body) < 1 {
		return fmt.Errorf("%w: body must be at least 1 character", ErrInvalidValue)
	}
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateName checks the display name of a secret.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minNameLength || n > maxNameLength {
		return fmt.Errorf("%w: name must be between %d and %d characters", ErrInvalidValue, minNameLength, maxNameLength)
	}
	return nil
}

// EncodeValue validates v and serializes it to the string that gets encrypted.
func EncodeValue(v Value, now time.Time) (string, error) {
	if err := v.Validate(now); err != nil {
		return "", err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	if utf8.RuneCount(data) < minValueLength {
		return "", fmt.Errorf("%w: value must be at least %d characters", ErrInvalidValue, minValueLength)
	}
	return string(data), nil
}

// DecodeValue parses a decrypted value into the shape for t.
func DecodeValue(t models.SecretType, raw string) (Value, error) {
	switch t {
	case models.SecretTypeWebLogin:
		var v WebLogin
		if err := decodeInto(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case models.SecretTypeCreditCard:
		var v CreditCard
		if err := decodeInto(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case models.SecretTypeSecureNote:
		var v SecureNote
		if err := decodeInto(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: unknown secret type %q", ErrInvalidValue, t)
}

func decodeInto(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}
