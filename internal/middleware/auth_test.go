package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charlene/kitchen-api/internal/limiter"
	"github.com/charlene/kitchen-api/internal/model"
)

const testSecret = "test-secret"

type mockUserRepo struct {
	byID map[primitive.ObjectID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: make(map[primitive.ObjectID]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.byID[user.ID] = user
	return nil
}

func signToken(t *testing.T, userID primitive.ObjectID, expiry time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID.Hex(),
		"exp": time.Now().Add(expiry).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func authRouter(repo *mockUserRepo, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{RequireAuth(repo, testSecret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c).Email})
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	repo := newMockUserRepo()
	user := &model.User{ID: primitive.NewObjectID(), Email: "mario@example.com", IsActive: true}
	repo.byID[user.ID] = user

	w := doGet(authRouter(repo), signToken(t, user.ID, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mario@example.com")
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	w := doGet(authRouter(newMockUserRepo()), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	repo := newMockUserRepo()
	user := &model.User{ID: primitive.NewObjectID(), IsActive: true}
	repo.byID[user.ID] = user

	w := doGet(authRouter(repo), signToken(t, user.ID, -time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	w := doGet(authRouter(newMockUserRepo()), "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestRequireAuth_UnknownUser(t *testing.T) {
	w := doGet(authRouter(newMockUserRepo()), signToken(t, primitive.NewObjectID(), time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_DisabledAccount(t *testing.T) {
	repo := newMockUserRepo()
	user := &model.User{ID: primitive.NewObjectID(), IsActive: false}
	repo.byID[user.ID] = user

	w := doGet(authRouter(repo), signToken(t, user.ID, time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "account disabled")
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newMockUserRepo()
	user := &model.User{ID: primitive.NewObjectID(), Email: "mario@example.com", IsActive: true}
	repo.byID[user.ID] = user

	r := gin.New()
	r.GET("/catalog", OptionalAuth(repo, testSecret), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.JSON(http.StatusOK, gin.H{"user": u.Email})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": "anonymous"})
	})

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get(signToken(t, user.ID, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mario@example.com")

	// no token and a dud token both fall through to anonymous
	w = get("")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")

	w = get(signToken(t, user.ID, -time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")
}

func TestRequireAdmin(t *testing.T) {
	repo := newMockUserRepo()
	customer := &model.User{ID: primitive.NewObjectID(), Role: model.RoleCustomer, IsActive: true}
	admin := &model.User{ID: primitive.NewObjectID(), Role: model.RoleAdmin, IsActive: true}
	repo.byID[customer.ID] = customer
	repo.byID[admin.ID] = admin

	r := authRouter(repo, RequireAdmin())

	w := doGet(r, signToken(t, customer.ID, time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "admin privileges required")

	w = doGet(r, signToken(t, admin.ID, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := limiter.NewMemoryStore(15 * time.Minute)

	r := gin.New()
	r.POST("/login", LoginRateLimit(store, 5, log), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "minutes")
}
