package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidInput = errors.New("invalid input")

var maxAmount = decimal.NewFromInt(1_000_000_000)

func ValidatePhone(phone string) error {
	p := strings.TrimPrefix(phone, "+")
	if p == "" {
		return fmt.Errorf("%w: phone number is empty", ErrInvalidInput)
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: phone number %q must contain digits only", ErrInvalidInput, phone)
		}
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	return nil
}

func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidInput)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: amount must be less than %s", ErrInvalidInput, maxAmount)
	}
	return nil
}

func ValidateAccountID(id int32) error {
	if id <= 0 {
		return fmt.Errorf("%w: account id must be greater than 0", ErrInvalidInput)
	}
	return nil
}

// ValidateCurrency accepts three-letter ISO 4217 style codes.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("%w: currency %q must be a 3-letter code", ErrInvalidInput, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: currency %q must be upper-case letters", ErrInvalidInput, code)
		}
	}
	return nil
}
