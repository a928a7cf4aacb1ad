package model

import "time"

// User is a registered account. Only IsVerified changes after creation.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"size:100;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:120;not null"`
	Phone        string     `json:"phone" gorm:"size:15;not null"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;size:200;not null"` // Never expose in JSON
	OTP          string     `json:"-" gorm:"column:otp;size:6"`
	OTPIssuedAt  *time.Time `json:"-" gorm:"column:otp_issued_at"`
	IsVerified   bool       `json:"is_verified" gorm:"not null;default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// OTPExpired reports whether the stored code is older than ttl. A zero ttl never expires.
func (u *User) OTPExpired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || u.OTPIssuedAt == nil {
		return false
	}
	return now.After(u.OTPIssuedAt.Add(ttl))
}
