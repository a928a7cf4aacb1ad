package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPGenerator produces one-time verification codes.
type OTPGenerator interface {
	Generate() (string, error)
}

type randomOTP struct{}

// NewOTPGenerator returns a generator drawing uniformly from 100000-999999.
func NewOTPGenerator() OTPGenerator {
	return randomOTP{}
}

func (randomOTP) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
