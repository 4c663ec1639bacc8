package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sweetshop/api/internal/middleware"
	"github.com/sweetshop/api/internal/model"
	"github.com/sweetshop/api/internal/repository"
	"github.com/sweetshop/api/internal/utils"
)

type fakeAdminStore struct {
	admins map[string]*model.Admin
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{admins: map[string]*model.Admin{}}
}

func (f *fakeAdminStore) Create(_ context.Context, a *model.Admin) error {
	for _, existing := range f.admins {
		if existing.Email == a.Email {
			return repository.ErrEmailExists
		}
		if existing.Username == a.Username {
			return repository.ErrUsernameExists
		}
	}
	a.ID = primitive.NewObjectID()
	f.admins[a.ID.Hex()] = a
	return nil
}

func (f *fakeAdminStore) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	for _, a := range f.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAdminStore) GetByID(_ context.Context, id string) (*model.Admin, error) {
	if a, ok := f.admins[id]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAdminStore) List(_ context.Context, _ repository.AdminListQuery) ([]model.Admin, int64, error) {
	out := make([]model.Admin, 0, len(f.admins))
	for _, a := range f.admins {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAdminStore) UpdateFields(_ context.Context, id primitive.ObjectID, fields bson.M) error {
	a := f.admins[id.Hex()]
	if v, ok := fields["firstName"]; ok {
		a.FirstName = v.(string)
	}
	if v, ok := fields["lastName"]; ok {
		a.LastName = v.(string)
	}
	if v, ok := fields["permissions"]; ok {
		a.Permissions = v.([]string)
	}
	return nil
}

func (f *fakeAdminStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	f.admins[id.Hex()].Password = hash
	return nil
}

func (f *fakeAdminStore) SetLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	f.admins[id.Hex()].LastLogin = &at
	return nil
}

func (f *fakeAdminStore) SetActive(_ context.Context, id string, active bool) (*model.Admin, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, repository.ErrInvalidID
	}
	a, ok := f.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a.IsActive = active
	if !active {
		a.RefreshTokens = nil
	}
	return a, nil
}

func (f *fakeAdminStore) AppendRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	a := f.admins[id.Hex()]
	a.RefreshTokens = append(a.RefreshTokens, model.RefreshTokenRecord{Token: token})
	return nil
}

func (f *fakeAdminStore) RemoveRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	a := f.admins[id.Hex()]
	kept := a.RefreshTokens[:0]
	for _, rt := range a.RefreshTokens {
		if rt.Token != token {
			kept = append(kept, rt)
		}
	}
	a.RefreshTokens = kept
	return nil
}

func (f *fakeAdminStore) ClearRefreshTokens(_ context.Context, id primitive.ObjectID) error {
	f.admins[id.Hex()].RefreshTokens = nil
	return nil
}

func adminPost(h echo.HandlerFunc, body string, caller *model.Admin, paramID string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		c.Set(middleware.CtxAdmin, caller)
	}
	if paramID != "" {
		c.SetParamNames("id")
		c.SetParamValues(paramID)
	}
	_ = h(c)
	return rec
}

func superAdmin() *model.Admin {
	return &model.Admin{ID: primitive.NewObjectID(), Role: model.RoleSuperAdmin, IsActive: true}
}

const adminRegisterBody = `{"username":"mod_jane","email":"jane@example.com","password":"secret-pass",` +
	`"role":"moderator","firstName":"Jane","lastName":"Doe"}`

func TestAdminRegister(t *testing.T) {
	t.Run("success applies role defaults", func(t *testing.T) {
		store := newFakeAdminStore()
		h := NewAdminHandler(testConfig(), store)

		rec := adminPost(h.Register, adminRegisterBody, superAdmin(), "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		a, err := store.GetByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, model.RoleModerator, a.Role)
		assert.Equal(t, model.DefaultPermissions(model.RoleModerator), a.Permissions)
		assert.True(t, a.IsActive)
		assert.Len(t, a.RefreshTokens, 1)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		h := NewAdminHandler(testConfig(), newFakeAdminStore())
		body := strings.Replace(adminRegisterBody, "moderator", "owner", 1)
		rec := adminPost(h.Register, body, superAdmin(), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing name rejected", func(t *testing.T) {
		h := NewAdminHandler(testConfig(), newFakeAdminStore())
		rec := adminPost(h.Register, `{"username":"mod_x","email":"x@example.com","password":"secret-pass"}`, superAdmin(), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminLoginRecordsLastLogin(t *testing.T) {
	store := newFakeAdminStore()
	h := NewAdminHandler(testConfig(), store)
	adminPost(h.Register, adminRegisterBody, superAdmin(), "")

	rec := adminPost(h.Login, `{"email":"jane@example.com","password":"secret-pass"}`, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	a, _ := store.GetByEmail(context.Background(), "jane@example.com")
	require.NotNil(t, a.LastLogin)
	assert.WithinDuration(t, time.Now(), *a.LastLogin, time.Minute)
}

func TestAdminRefreshRejectsUserRealm(t *testing.T) {
	store := newFakeAdminStore()
	h := NewAdminHandler(testConfig(), store)

	// A customer refresh token must never open an admin session even
	// though both realms share the signing secret.
	rt, err := utils.NewRefreshToken(testConfig().JWTRefreshSecret, primitive.NewObjectID().Hex(), utils.RealmUser, 30)
	require.NoError(t, err)

	rec := adminPost(h.Refresh, `{"refreshToken":"`+rt.Token+`"}`, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code, _ := decodeEnvelope(t, rec)
	assert.Equal(t, CodeTokenInvalid, code)
}

func TestAdminDeactivate(t *testing.T) {
	store := newFakeAdminStore()
	h := NewAdminHandler(testConfig(), store)
	caller := superAdmin()
	store.admins[caller.ID.Hex()] = caller
	adminPost(h.Register, adminRegisterBody, caller, "")
	target, _ := store.GetByEmail(context.Background(), "jane@example.com")

	t.Run("self-deactivation rejected", func(t *testing.T) {
		rec := adminPost(h.Deactivate, "", caller, caller.ID.Hex())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, caller.IsActive)
	})

	t.Run("deactivation revokes sessions", func(t *testing.T) {
		rec := adminPost(h.Deactivate, "", caller, target.ID.Hex())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.False(t, target.IsActive)
		assert.Empty(t, target.RefreshTokens)
	})

	t.Run("reactivation", func(t *testing.T) {
		rec := adminPost(h.Activate, "", caller, target.ID.Hex())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, target.IsActive)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := adminPost(h.Deactivate, "", caller, primitive.NewObjectID().Hex())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
