package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// subject returns the caller identity stored by JWTAuth, or "anon" for
// public requests.  Numeric subjects arrive as float64 from JSON claims.
func subject(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return "anon"
}
