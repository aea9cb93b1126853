package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketing/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptRoundTrip(t *testing.T) {
	b := &Bcrypt{Cost: 4}

	hash, err := b.Hash("password")
	require.NoError(t, err)
	assert.NotEqual(t, "password", hash)

	assert.NoError(t, b.Compare(hash, "password"))
	assert.ErrorIs(t, b.Compare(hash, "wrong"), ErrPasswordMismatch)
}

func TestIssuerSignVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, err := issuer.Sign(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	identity, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: "u1", Email: "a@b.c"}, identity)
}

func TestIssuerRejectsForeignKey(t *testing.T) {
	token, err := NewIssuer("other", time.Hour).Sign(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuerRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.Sign(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewIssuer("secret", time.Hour)

	router := gin.New()
	router.Use(CurrentUser(issuer))
	router.GET("/me", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, IdentityFrom(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := issuer.Sign(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1","email":"a@b.c"}`, w.Body.String())
}

func TestGarbageSessionIsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CurrentUser(NewIssuer("secret", time.Hour)))
	router.GET("/me", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
