package model

import "time"

// OtpCode is one verification window for a phone number.  Only the bcrypt
// hash of the six digit code is stored.
type OtpCode struct {
    ID          string    // otp_codes.id
    Phone       string    // otp_codes.phone (E.164)
    CodeHash    string    // otp_codes.code_hash
    ExpiresAt   time.Time // otp_codes.expires_at
    IsUsed      bool      // otp_codes.is_used
    Attempts    int       // otp_codes.attempts
    MaxAttempts int       // otp_codes.max_attempts
    CreatedAt   time.Time // otp_codes.created_at
}
