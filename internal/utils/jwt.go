package utils // helpers for signed tokens, hashing and random codes

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ManagePurpose is the purpose claim carried by booking management tokens.
const ManagePurpose = "manage"

// ErrInvalidManageToken is returned for tokens with a bad signature, a
// wrong purpose or an expired exp claim.
var ErrInvalidManageToken = errors.New("invalid manage token")

// ManageClaims is the payload of a booking management token.
type ManageClaims struct {
	BookingID uint64 `json:"bid"`
	Nonce     string `json:"nonce"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// ManageToken is a signed management token and its expiry.
type ManageToken struct {
	Token string
	Exp   time.Time
}

// NewManageToken signs an HS256 management token for bookingID valid
// for ttl from now.  Every call embeds a fresh random nonce, so two tokens
// for the same booking never collide.
func NewManageToken(secret string, bookingID uint64, now time.Time, ttl time.Duration) (ManageToken, error) {
	exp := now.UTC().Add(ttl)
	claims := ManageClaims{
		BookingID: bookingID,
		Nonce:     uuid.NewString(),
		Purpose:   ManagePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(bookingID, 10),
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return ManageToken{}, err
	}
	// exp is carried in whole seconds
	return ManageToken{Token: signed, Exp: exp.Truncate(time.Second)}, nil
}

// ParseManageToken verifies the signature, expiry (against now) and
// purpose of raw and returns its claims.
func ParseManageToken(secret, raw string, now time.Time) (ManageClaims, error) {
	var claims ManageClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return ManageClaims{}, fmt.Errorf("%w: %v", ErrInvalidManageToken, err)
	}
	if !tok.Valid || claims.Purpose != ManagePurpose || claims.BookingID == 0 {
		return ManageClaims{}, ErrInvalidManageToken
	}
	return claims, nil
}
