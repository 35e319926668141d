package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/campusconnect/campuschat/internal/model"
)

// Claims are the bearer-token payload fields the client needs. The token is
// decoded without signature verification: the server is the one enforcing
// authenticity, the client only needs its own identity for inbox routing.
type Claims struct {
	UserID       int64      `json:"userId"`
	Subject      string     `json:"sub"`
	Name         string     `json:"name"`
	Role         model.Role `json:"role"`
	DepartmentID int64      `json:"departmentId"`
}

// Decode extracts the claims from a JWT-shaped bearer token. When the payload
// has no userId claim, a numeric sub claim is used instead.
func Decode(tok string) (Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("token has %d segments, want 3", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("decode token payload: %w", err)
	}

	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return Claims{}, fmt.Errorf("parse token payload: %w", err)
	}

	if c.UserID == 0 && c.Subject != "" {
		if id, err := strconv.ParseInt(c.Subject, 10, 64); err == nil {
			c.UserID = id
		}
	}
	if c.UserID == 0 {
		return Claims{}, fmt.Errorf("token payload has no user id")
	}
	return c, nil
}
