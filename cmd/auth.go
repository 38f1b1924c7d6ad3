package main

import (
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// permissions granted by the host application
const (
	viewRepositoryPerm      = "view_repository"
	updateDigitalObjectPerm = "update_digital_object_record"
)

type domClaims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"userID"`
	Permissions []string `json:"permissions"`
}

func mintJWT(key []byte, userID string, perms []string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, domClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "dom",
		},
		UserID:      userID,
		Permissions: perms,
	})
	return token.SignedString(key)
}

func parseJWT(key []byte, tokenStr string) (*domClaims, error) {
	claims := &domClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// requirePermission returns middleware that only accepts bearer tokens that carry perm.
// When no JWT key is configured access control is left to the host application.
func (svc *ServiceContext) requirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc.JWTKey == "" {
			c.Next()
			return
		}
		authHdr := c.GetHeader("Authorization")
		tokenStr, found := strings.CutPrefix(authHdr, "Bearer ")
		if !found || tokenStr == "" {
			log.Printf("INFO: %s request without bearer token", c.Request.URL)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, err := parseJWT([]byte(svc.JWTKey), tokenStr)
		if err != nil {
			log.Printf("INFO: invalid token for %s: %s", c.Request.URL, err.Error())
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !slices.Contains(claims.Permissions, perm) {
			log.Printf("INFO: user %s lacks %s permission for %s", claims.UserID, perm, c.Request.URL)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Set("userID", claims.UserID)
		c.Next()
	}
}
