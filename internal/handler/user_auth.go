package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
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

var (
	emailPattern    = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

// AuthHandler serves the customer identity lifecycle: register, login,
// refresh, logout and self-service profile management.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewAuthHandler(cfg config.Config, users UserStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type tokenPairResp struct {
	Token        utils.AccessToken  `json:"token"`
	RefreshToken utils.RefreshToken `json:"refreshToken"`
}

// Register creates a customer account and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
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

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return internal(c)
	}
	u := &model.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    hash,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		IsActive:    true,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) || errors.Is(err, repository.ErrUsernameExists) {
			return fail(c, http.StatusBadRequest, CodeDuplicate, err.Error())
		}
		return internal(c)
	}

	pair, err := h.issueTokens(ctx, u)
	if err != nil {
		return internal(c)
	}
	return created(c, "user registered successfully", echo.Map{
		"user":         u,
		"token":        pair.Token,
		"refreshToken": pair.RefreshToken,
	})
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "please provide email and password")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil || !u.IsActive || !utils.VerifyPassword(u.Password, req.Password) {
		return fail(c, http.StatusUnauthorized, CodeInvalidCredentials, "invalid login credentials")
	}

	pair, err := h.issueTokens(ctx, u)
	if err != nil {
		return internal(c)
	}
	return okMsg(c, "login successful", echo.Map{
		"user":         u,
		"token":        pair.Token,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh exchanges a valid stored refresh token for a new pair, rotating
// the consumed token out of the user's list.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh token is required")
	}
	raw := strings.TrimSpace(req.RefreshToken)

	claims, err := utils.ParseRefreshToken(h.Cfg.JWTRefreshSecret, raw)
	if err != nil {
		return refreshFailure(c, err)
	}
	if claims.Realm != utils.RealmUser {
		return fail(c, http.StatusUnauthorized, CodeTokenInvalid, "invalid refresh token")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, claims.Subject)
	if err != nil || !u.IsActive || !u.HasRefreshToken(raw) {
		return fail(c, http.StatusUnauthorized, CodeTokenInvalid, "invalid refresh token")
	}

	if err := h.Users.RemoveRefreshToken(ctx, u.ID, raw); err != nil {
		return internal(c)
	}
	pair, err := h.issueTokens(ctx, u)
	if err != nil {
		return internal(c)
	}
	return ok(c, pair)
}

// Logout revokes the supplied refresh token for the authenticated user.
// Revoking an already-absent token still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(*model.User)
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := reqCtx(c)
	defer cancel()
	if token := strings.TrimSpace(req.RefreshToken); token != "" {
		if err := h.Users.RemoveRefreshToken(ctx, u.ID, token); err != nil {
			return internal(c)
		}
	}
	return okMsg(c, "logged out successfully", nil)
}

// LogoutAll revokes every outstanding session for the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(*model.User)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.ClearRefreshTokens(ctx, u.ID); err != nil {
		return internal(c)
	}
	return okMsg(c, "logged out from all devices successfully", nil)
}

// Profile returns the authenticated user's own record.
func (h *AuthHandler) Profile(c echo.Context) error {
	return ok(c, echo.Map{"user": c.Get(middleware.CtxUser).(*model.User)})
}

// UpdateProfile changes the user's own name and phone number.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(*model.User)
	var req struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		PhoneNumber string `json:"phoneNumber"`
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
	if len(fields) == 0 {
		return badRequest(c, "no profile fields to update")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdateProfile(ctx, u.ID, fields); err != nil {
		return internal(c)
	}
	refreshed, err := h.Users.GetByID(ctx, u.ID.Hex())
	if err != nil {
		return internal(c)
	}
	return okMsg(c, "profile updated successfully", echo.Map{"user": refreshed})
}

// ChangePassword verifies the current password before storing a new hash.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u := c.Get(middleware.CtxUser).(*model.User)
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
	if !utils.VerifyPassword(u.Password, req.CurrentPassword) {
		return badRequest(c, "current password is incorrect")
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return internal(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return internal(c)
	}
	return okMsg(c, "password changed successfully", nil)
}

// issueTokens mints an access/refresh pair and stores the refresh token on
// the user document.
func (h *AuthHandler) issueTokens(ctx context.Context, u *model.User) (tokenPairResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID.Hex(), utils.RealmUser, utils.RealmUser, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenPairResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTRefreshSecret, u.ID.Hex(), utils.RealmUser, h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenPairResp{}, err
	}
	if err := h.Users.AppendRefreshToken(ctx, u.ID, refresh.Token); err != nil {
		return tokenPairResp{}, err
	}
	return tokenPairResp{Token: access, RefreshToken: refresh}, nil
}

// refreshFailure maps token verification errors, keeping expiry
// distinguishable.
func refreshFailure(c echo.Context, err error) error {
	if errors.Is(err, utils.ErrTokenExpired) {
		return fail(c, http.StatusUnauthorized, CodeTokenExpired, "refresh token expired")
	}
	return fail(c, http.StatusUnauthorized, CodeTokenInvalid, "invalid refresh token")
}

// reqCtx bounds every store round trip issued from a handler.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
