package security

import (
	"fmt"
	"strconv"

	"coach-connect/internal/domain"
	"coach-connect/internal/domain/ports/adapter"

	"github.com/golang-jwt/jwt/v5"
)

var _ adapter.IdentityDecoder = (*ClaimsDecoder)(nil)

// userIDClaims are checked in order.
var userIDClaims = []string{"user_id", "uid", "sub"}

// ClaimsDecoder reads the user id out of a JWT without checking its
// signature. The fitness API verifies the token on every call we make with it.
type ClaimsDecoder struct {
	parser *jwt.Parser
}

func NewClaimsDecoder() *ClaimsDecoder {
	return &ClaimsDecoder{parser: jwt.NewParser()}
}

func (d *ClaimsDecoder) UserID(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	for _, k := range userIDClaims {
		switch v := claims[k].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	}
	return "", fmt.Errorf("%w: no user id claim", domain.ErrInvalidToken)
}
