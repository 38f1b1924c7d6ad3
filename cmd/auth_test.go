package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	key := []byte("jwt-secret")
	tok, err := mintJWT(key, "lf6f", []string{viewRepositoryPerm}, time.Hour)
	require.NoError(t, err)

	claims, err := parseJWT(key, tok)
	require.NoError(t, err)
	assert.Equal(t, "lf6f", claims.UserID)
	assert.Equal(t, []string{viewRepositoryPerm}, claims.Permissions)

	_, err = parseJWT([]byte("other"), tok)
	assert.Error(t, err)

	expired, err := mintJWT(key, "lf6f", nil, -time.Minute)
	require.NoError(t, err)
	_, err = parseJWT(key, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &ServiceContext{JWTKey: "jwt-secret"}
	router := gin.New()
	router.GET("/protected", svc.requirePermission(updateDigitalObjectPerm), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})

	viewOnly, err := mintJWT([]byte(svc.JWTKey), "viewer", []string{viewRepositoryPerm}, time.Hour)
	require.NoError(t, err)
	updater, err := mintJWT([]byte(svc.JWTKey), "editor", []string{viewRepositoryPerm, updateDigitalObjectPerm}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + updater, http.StatusUnauthorized},
		{"no permission", "Bearer " + viewOnly, http.StatusForbidden},
		{"allowed", "Bearer " + updater, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "editor", rec.Body.String())
			}
		})
	}
}

func TestRequirePermissionDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &ServiceContext{}
	router := gin.New()
	router.GET("/protected", svc.requirePermission(viewRepositoryPerm), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
