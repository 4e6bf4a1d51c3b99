package model

import "time"

// ManageToken binds a signed management credential to one booking.
// IsUsed is set once the booking has been cancelled through it, after
// which the token no longer resolves.
type ManageToken struct {
    ID        string    // manage_tokens.id
    BookingID uint64    // manage_tokens.booking_id
    Token     string    // manage_tokens.token
    ExpiresAt time.Time // manage_tokens.expires_at
    IsUsed    bool      // manage_tokens.is_used
    CreatedAt time.Time // manage_tokens.created_at
}
