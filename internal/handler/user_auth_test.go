package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweetshop/api/internal/config"
	"github.com/sweetshop/api/internal/middleware"
	"github.com/sweetshop/api/internal/model"
	"github.com/sweetshop/api/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTTLMin:     60,
		RefreshTTLDays:   30,
		BcryptCost:       bcrypt.MinCost,
	}
}

// fakeUserStore keeps users in memory, mimicking the MongoDB repository's
// sentinel errors.
type fakeUserStore struct {
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
		if existing.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	u.ID = primitive.NewObjectID()
	f.users[u.ID.Hex()] = u
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	u := f.users[id.Hex()]
	if v, ok := fields["firstName"]; ok {
		u.FirstName = v.(string)
	}
	if v, ok := fields["lastName"]; ok {
		u.LastName = v.(string)
	}
	if v, ok := fields["phoneNumber"]; ok {
		u.PhoneNumber = v.(string)
	}
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	f.users[id.Hex()].Password = hash
	return nil
}

func (f *fakeUserStore) AppendRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	u := f.users[id.Hex()]
	u.RefreshTokens = append(u.RefreshTokens, model.RefreshTokenRecord{Token: token})
	return nil
}

func (f *fakeUserStore) RemoveRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	u := f.users[id.Hex()]
	kept := u.RefreshTokens[:0]
	for _, rt := range u.RefreshTokens {
		if rt.Token != token {
			kept = append(kept, rt)
		}
	}
	u.RefreshTokens = kept
	return nil
}

func (f *fakeUserStore) ClearRefreshTokens(_ context.Context, id primitive.ObjectID) error {
	f.users[id.Hex()].RefreshTokens = nil
	return nil
}

// postJSON runs a handler against a JSON body, optionally with an
// authenticated user in context.
func postJSON(h echo.HandlerFunc, body string, user *model.User) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.CtxUser, user)
	}
	_ = h(c)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (bool, string, map[string]any) {
	t.Helper()
	var body struct {
		Success bool           `json:"success"`
		Error   string         `json:"error"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Success, body.Error, body.Data
}

const registerBody = `{"username":"alice","email":"alice@example.com","password":"secret-pass","firstName":"Alice"}`

func TestRegister(t *testing.T) {
	t.Run("success returns a token pair", func(t *testing.T) {
		store := newFakeUserStore()
		h := NewAuthHandler(testConfig(), store)

		rec := postJSON(h.Register, registerBody, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		success, _, data := decodeEnvelope(t, rec)
		assert.True(t, success)
		require.Contains(t, data, "token")
		require.Contains(t, data, "refreshToken")

		// Password and refresh tokens never leak through JSON.
		userJSON, _ := json.Marshal(data["user"])
		assert.NotContains(t, string(userJSON), "password")

		// The issued refresh token is stored server-side.
		u, err := store.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Len(t, u.RefreshTokens, 1)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		store := newFakeUserStore()
		h := NewAuthHandler(testConfig(), store)
		postJSON(h.Register, registerBody, nil)

		rec := postJSON(h.Register, `{"username":"alice2","email":"alice@example.com","password":"secret-pass"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		_, code, _ := decodeEnvelope(t, rec)
		assert.Equal(t, CodeDuplicate, code)
	})

	t.Run("validation failures", func(t *testing.T) {
		h := NewAuthHandler(testConfig(), newFakeUserStore())
		tests := []struct {
			name string
			body string
		}{
			{"missing fields", `{"username":"bob"}`},
			{"short password", `{"username":"bob","email":"bob@example.com","password":"short"}`},
			{"bad email", `{"username":"bob","email":"not-an-email","password":"secret-pass"}`},
			{"bad username", `{"username":"b!","email":"bob@example.com","password":"secret-pass"}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := postJSON(h.Register, tt.body, nil)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				_, code, _ := decodeEnvelope(t, rec)
				assert.Equal(t, CodeValidation, code)
			})
		}
	})
}

func TestLogin(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(testConfig(), store)
	postJSON(h.Register, registerBody, nil)

	t.Run("success", func(t *testing.T) {
		rec := postJSON(h.Login, `{"email":"alice@example.com","password":"secret-pass"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		success, _, data := decodeEnvelope(t, rec)
		assert.True(t, success)
		assert.Contains(t, data, "token")
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := postJSON(h.Login, `{"email":"alice@example.com","password":"nope-nope"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		_, code, _ := decodeEnvelope(t, rec)
		assert.Equal(t, CodeInvalidCredentials, code)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := postJSON(h.Login, `{"email":"ghost@example.com","password":"secret-pass"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deactivated account", func(t *testing.T) {
		u, _ := store.GetByEmail(context.Background(), "alice@example.com")
		u.IsActive = false
		defer func() { u.IsActive = true }()
		rec := postJSON(h.Login, `{"email":"alice@example.com","password":"secret-pass"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshRotation(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(testConfig(), store)

	rec := postJSON(h.Register, registerBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	_, _, data := decodeEnvelope(t, rec)
	first := data["refreshToken"].(map[string]any)["token"].(string)

	// First exchange succeeds and yields a different refresh token.
	rec = postJSON(h.Refresh, `{"refreshToken":"`+first+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, _, data = decodeEnvelope(t, rec)
	second := data["refreshToken"].(map[string]any)["token"].(string)
	require.NotEmpty(t, second)

	// The consumed token was rotated out and is no longer accepted.
	rec = postJSON(h.Refresh, `{"refreshToken":"`+first+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, CodeTokenInvalid, code)

	// The replacement still works.
	rec = postJSON(h.Refresh, `{"refreshToken":"`+second+`"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	h := NewAuthHandler(testConfig(), newFakeUserStore())

	rec := postJSON(h.Refresh, `{"refreshToken":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(h.Refresh, `{"refreshToken":"junk"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, CodeTokenInvalid, code)
}

func TestLogout(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(testConfig(), store)

	rec := postJSON(h.Register, registerBody, nil)
	_, _, data := decodeEnvelope(t, rec)
	token := data["refreshToken"].(map[string]any)["token"].(string)
	u, err := store.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)

	rec = postJSON(h.Logout, `{"refreshToken":"`+token+`"}`, u)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, u.RefreshTokens)

	// Logging out the same token again still succeeds.
	rec = postJSON(h.Logout, `{"refreshToken":"`+token+`"}`, u)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutAll(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(testConfig(), store)

	postJSON(h.Register, registerBody, nil)
	u, err := store.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	postJSON(h.Login, `{"email":"alice@example.com","password":"secret-pass"}`, nil)
	require.Len(t, u.RefreshTokens, 2)

	rec := postJSON(h.LogoutAll, `{}`, u)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, u.RefreshTokens)
}

func TestChangePassword(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(testConfig(), store)
	postJSON(h.Register, registerBody, nil)
	u, _ := store.GetByEmail(context.Background(), "alice@example.com")

	t.Run("wrong current password", func(t *testing.T) {
		rec := postJSON(h.ChangePassword, `{"currentPassword":"wrong","newPassword":"brand-new-pass"}`, u)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		rec := postJSON(h.ChangePassword, `{"currentPassword":"secret-pass","newPassword":"brand-new-pass"}`, u)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = postJSON(h.Login, `{"email":"alice@example.com","password":"brand-new-pass"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
