package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sweetshop/api/internal/config"
	"github.com/sweetshop/api/internal/middleware"
	"github.com/sweetshop/api/internal/model"
	"github.com/sweetshop/api/internal/repository"
	"github.com/sweetshop/api/internal/utils"
)

// AdminHandler serves the admin session lifecycle plus the super_admin-only
// account management surface.
type AdminHandler struct {
	Cfg    config.Config
	Admins AdminStore
}

func NewAdminHandler(cfg config.Config, admins AdminStore) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Admins: admins}
}

type adminRegisterReq struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	PhoneNumber string   `json:"phoneNumber"`
	Permissions []string `json:"permissions"`
}

// Register creates an admin account. Routed behind super_admin, so the
// creator reference is always present.
func (h *AdminHandler) Register(c echo.Context) error {
	creator := c.Get(middleware.CtxAdmin).(*model.Admin)
	var req adminRegisterReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "username, email and password are required")
	}
	if len(req.Username) < 3 || len(req.Username) > 30 || !usernamePattern.MatchString(req.Username) {
		return badRequest(c, "username must be 3-30 characters of letters, numbers and underscores")
	}
	if !emailPattern.MatchString(req.Email) {
		return badRequest(c, "please provide a valid email address")
	}
	if len(req.Password) < 8 {
		return badRequest(c, "password must be at least 8 characters long")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return badRequest(c, "first and last name are required")
	}
	role := req.Role
	if role == "" {
		role = model.RoleAdmin
	}
	if !model.ValidAdminRole(role) {
		return badRequest(c, "role must be super_admin, admin, or moderator")
	}
	perms := req.Permissions
	if len(perms) == 0 {
		perms = model.DefaultPermissions(role)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internal(c)
	}
	a := &model.Admin{
		Username:    req.Username,
		Email:       req.Email,
		Password:    hash,
		Role:        role,
		Permissions: perms,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		IsActive:    true,
		CreatedBy:   creator.ID,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admins.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrEmailExists) || errors.Is(err, repository.ErrUsernameExists) {
			return fail(c, http.StatusBadRequest, CodeDuplicate, err.Error())
		}
		return internal(c)
	}

	pair, err := h.issueTokens(ctx, a)
	if err != nil {
		return internal(c)
	}
	return created(c, "admin registered successfully", echo.Map{
		"admin":        a,
		"token":        pair.Token,
		"refreshToken": pair.RefreshToken,
	})
}

// Login verifies admin credentials, records the login time and returns a
// token pair.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "please provide email and password")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Admins.GetByEmail(ctx, req.Email)
	if err != nil || !a.IsActive || !utils.VerifyPassword(a.Password, req.Password) {
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid login credentials")
	}

	now := time.Now().UTC()
	if err := h.Admins.SetLastLogin(ctx, a.ID, now); err != nil {
		return internal(c)
	}
	a.LastLogin = &now

	pair, err := h.issueTokens(ctx, a)
	if err != nil {
		return internal(c)
	}
	return okMsg(c, "login successful", echo.Map{
		"admin":        a,
		"token":        pair.Token,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh rotates an admin refresh token. Claim validation is identical to
// the customer path.
func (h *AdminHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh token is required")
	}
	raw := strings.TrimSpace(req.RefreshToken)

	claims, err := utils.ParseRefreshToken(h.Cfg.JWTRefreshSecret, raw)
	if err != nil {
		return refreshFailure(c, err)
	}
	if claims.Realm != utils.RealmAdmin {
		return fail(c, http.StatusUnauthorized, CodeTokenInvalid, "invalid refresh token")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Admins.GetByID(ctx, claims.Subject)
	if err != nil || !a.IsActive || !a.HasRefreshToken(raw) {
		return fail(c, http.StatusUnauthorized, CodeTokenInvalid, "invalid refresh token")
	}

	if err := h.Admins.RemoveRefreshToken(ctx, a.ID, raw); err != nil {
		return internal(c)
	}
	pair, err := h.issueTokens(ctx, a)
	if err != nil {
		return internal(c)
	}
	return ok(c, pair)
}

// Logout revokes one refresh token; already-absent tokens still succeed.
func (h *AdminHandler) Logout(c echo.Context) error {
	a := c.Get(middleware.CtxAdmin).(*model.Admin)
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := reqCtx(c)
	defer cancel()
	if token := strings.TrimSpace(req.RefreshToken); token != "" {
		if err := h.Admins.RemoveRefreshToken(ctx, a.ID, token); err != nil {
			return internal(c)
		}
	}
	return okMsg(c, "logged out successfully", nil)
}

// LogoutAll revokes every outstanding admin session.
func (h *AdminHandler) LogoutAll(c echo.Context) error {
	a := c.Get(middleware.CtxAdmin).(*model.Admin)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admins.ClearRefreshTokens(ctx, a.ID); err != nil {
		return internal(c)
	}
	return okMsg(c, "logged out from all devices successfully", nil)
}

// Profile returns the authenticated admin's own record.
func (h *AdminHandler) Profile(c echo.Context) error {
	return ok(c, echo.Map{"admin": c.Get(middleware.CtxAdmin).(*model.Admin)})
}

// UpdateProfile changes name and phone; only a super_admin may rewrite
// the permission set.
func (h *AdminHandler) UpdateProfile(c echo.Context) error {
	a := c.Get(middleware.CtxAdmin).(*model.Admin)
	var req struct {
		FirstName   string   `json:"firstName"`
		LastName    string   `json:"lastName"`
		PhoneNumber string   `json:"phoneNumber"`
		Permissions []string `json:"permissions"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	fields := bson.M{}
	if req.FirstName != "" {
		fields["firstName"] = strings.TrimSpace(req.FirstName)
	}
	if req.LastName != "" {
		fields["lastName"] = strings.TrimSpace(req.LastName)
	}
	if req.PhoneNumber != "" {
		fields["phoneNumber"] = strings.TrimSpace(req.PhoneNumber)
	}
	if len(req.Permissions) > 0 && a.Role == model.RoleSuperAdmin {
		fields["permissions"] = req.Permissions
	}
	if len(fields) == 0 {
		return badRequest(c, "no profile fields to update")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admins.UpdateFields(ctx, a.ID, fields); err != nil {
		return internal(c)
	}
	refreshed, err := h.Admins.GetByID(ctx, a.ID.Hex())
	if err != nil {
		return internal(c)
	}
	return okMsg(c, "profile updated successfully", echo.Map{"admin": refreshed})
}

// ChangePassword verifies the current password before storing a new hash.
func (h *AdminHandler) ChangePassword(c echo.Context) error {
	a := c.Get(middleware.CtxAdmin).(*model.Admin)
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return badRequest(c, "please provide current and new password")
	}
	if len(req.NewPassword) < 8 {
		return badRequest(c, "password must be at least 8 characters long")
	}
	if !utils.VerifyPassword(a.Password, req.CurrentPassword) {
		return badRequest(c, "current password is incorrect")
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return internal(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admins.UpdatePassword(ctx, a.ID, hash); err != nil {
		return internal(c)
	}
	return okMsg(c, "password changed successfully", nil)
}

// List pages through the admin roster, filtered by role and active flag.
// super_admin only.
func (h *AdminHandler) List(c echo.Context) error {
	page, limit := pageLimit(c, 10)
	q := repository.AdminListQuery{
		Role:  c.QueryParam("role"),
		Page:  page,
		Limit: limit,
	}
	if v := c.QueryParam("isActive"); v != "" {
		active := v == "true"
		q.IsActive = &active
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	admins, total, err := h.Admins.List(ctx, q)
	if err != nil {
		return internal(c)
	}
	return ok(c, echo.Map{
		"admins":     admins,
		"pagination": model.NewPagination(page, limit, total),
	})
}

// Activate re-enables an admin account. super_admin only.
func (h *AdminHandler) Activate(c echo.Context) error {
	return h.setActive(c, true, "admin activated successfully")
}

// Deactivate soft-deletes an admin account and revokes its sessions.
// Self-deactivation is rejected. super_admin only.
func (h *AdminHandler) Deactivate(c echo.Context) error {
	caller := c.Get(middleware.CtxAdmin).(*model.Admin)
	if c.Param("id") == caller.ID.Hex() {
		return badRequest(c, "you cannot deactivate your own account")
	}
	return h.setActive(c, false, "admin deactivated successfully")
}

func (h *AdminHandler) setActive(c echo.Context, active bool, message string) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Admins.SetActive(ctx, c.Param("id"), active)
	if err != nil {
		return storeFailure(c, err)
	}
	return okMsg(c, message, echo.Map{"admin": a})
}

// issueTokens mints an admin access/refresh pair, embedding the admin role
// claim, and stores the refresh token on the admin document.
func (h *AdminHandler) issueTokens(ctx context.Context, a *model.Admin) (tokenPairResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, a.ID.Hex(), utils.RealmAdmin, a.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenPairResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTRefreshSecret, a.ID.Hex(), utils.RealmAdmin, h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenPairResp{}, err
	}
	if err := h.Admins.AppendRefreshToken(ctx, a.ID, refresh.Token); err != nil {
		return tokenPairResp{}, err
	}
	return tokenPairResp{Token: access, RefreshToken: refresh}, nil
}

// storeFailure maps repository sentinels onto the error taxonomy.
func storeFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, CodeNotFound, "resource not found")
	case errors.Is(err, repository.ErrInvalidID):
		return fail(c, http.StatusBadRequest, CodeInvalidID, "invalid id")
	default:
		return internal(c)
	}
}

// pageLimit parses page/limit query params with clamping.
func pageLimit(c echo.Context, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
