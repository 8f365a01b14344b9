package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/diagram-go/pkg/config"
)

// AuthService handles sysop authentication for the administrative surface.
type AuthService struct{}

// NewAuthService creates a new auth service.
func NewAuthService() *AuthService {
	return &AuthService{}
}

// AuthenticateSysOp validates the sysop password and returns a signed token.
// The configured password may be a bcrypt hash or plaintext.
func (s *AuthService) AuthenticateSysOp(password string) (string, error) {
	stored := config.SysOpPassword
	if stored == "" {
		return "", fmt.Errorf("sysop access is not configured")
	}

	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") {
		if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)); err != nil {
			return "", fmt.Errorf("invalid credentials")
		}
	} else if stored != password {
		return "", fmt.Errorf("invalid credentials")
	}

	claims := jwt.MapClaims{
		"role": "sysop",
		"type": "sysop_auth",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}

	return security.GenerateJWT(claims, config.JWTSecret)
}

// ValidateSysOpToken verifies a sysop bearer token.
func (s *AuthService) ValidateSysOpToken(tokenString string) error {
	claims, err := security.ValidateJWT(tokenString, config.JWTSecret)
	if err != nil {
		return err
	}

	if claims["type"] != "sysop_auth" || claims["role"] != "sysop" {
		return fmt.Errorf("invalid token type")
	}
	return nil
}
