package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", JWTAuthMiddleware(testSecret, "organizer"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet("user_id"), "role": c.MustGet("role")})
	})
	return r
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := newProtectedRouter()
	userID := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"organizer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"user_id": userID.String(), "role": "organizer", "exp": exp,
		}), http.StatusOK},
		{"attendee", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"user_id": userID.String(), "role": "attendee", "exp": exp,
		}), http.StatusForbidden},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"user_id": userID.String(), "role": "organizer", "exp": time.Now().Add(-time.Hour).Unix(),
		}), http.StatusUnauthorized},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
			"user_id": userID.String(), "role": "organizer", "exp": exp,
		}), http.StatusUnauthorized},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{
			"user_id": userID.String(), "role": "organizer", "exp": exp,
		}), http.StatusUnauthorized},
		{"bad user id", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"user_id": "nope", "role": "organizer", "exp": exp,
		}), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, tt.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestParseToken_EmptySecret(t *testing.T) {
	_, _, err := ParseToken("", "anything")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
