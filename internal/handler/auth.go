package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/config"
	"github.com/iliyamo/cinema-reservation/internal/middleware"
	"github.com/iliyamo/cinema-reservation/internal/model"
	"github.com/iliyamo/cinema-reservation/internal/repository"
	"github.com/iliyamo/cinema-reservation/internal/utils"
)

// Users is the account store the auth endpoints need.
type Users interface {
	Create(ctx context.Context, u repository.NewUser, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Search(ctx context.Context, emailFragment string, limit int) ([]model.User, error)
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
}

// Tokens is the refresh token store.
type Tokens interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler serves /account.
type AuthHandler struct {
	cfg    config.Config
	users  Users
	tokens Tokens
	logger hclog.Logger
}

func NewAuthHandler(cfg config.Config, users Users, tokens Tokens, logger hclog.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, tokens: tokens, logger: logger.Named("auth")}
}

type registerReq struct {
	GivenName string `json:"given_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordReq struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type accountPart struct {
	ID        uint64         `json:"id"`
	GivenName string         `json:"given_name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"`
	Kind      model.UserKind `json:"kind"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

type authResp struct {
	User    accountPart `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func account(u model.User) accountPart {
	return accountPart{ID: u.ID, GivenName: u.GivenName, LastName: u.LastName, Email: u.Email, Kind: u.Kind, CreatedAt: u.CreatedAt}
}

// issue creates an access/refresh pair and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, u.ID, string(u.Kind), h.cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    account(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register creates a customer account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.GivenName = strings.TrimSpace(req.GivenName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case !utils.ValidName(req.GivenName) || !utils.ValidName(req.LastName):
		return badRequest(c, "names may contain letters and spaces only")
	case !strings.Contains(req.Email, "@"):
		return badRequest(c, "a valid email is required")
	case !utils.ValidPassword(req.Password):
		return badRequest(c, "password needs 8-72 characters with upper case, lower case and a digit")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u := model.User{GivenName: req.GivenName, LastName: req.LastName, Email: req.Email, Kind: model.UserCustomer}
	id, err := h.users.Create(ctx, repository.NewUser{
		GivenName: u.GivenName, LastName: u.LastName, Email: u.Email, Password: req.Password, Kind: u.Kind,
	}, h.cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		h.logger.Error("create account failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}
	u.ID = id
	resp, err := h.issue(ctx, u)
	if err != nil {
		h.logger.Error("issue tokens failed", "user_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	h.logger.Info("account registered", "user_id", id)
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email and password required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		h.logger.Error("load account failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		h.logger.Error("issue tokens failed", "user_id", u.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is returned.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	next, err := utils.NewRefreshToken(h.cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	userID, err := h.tokens.Rotate(ctx, oldHash, utils.HashRefreshRaw(next.Raw), next.Exp)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err != nil {
		h.logger.Error("rotate refresh failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.logger.Error("load account failed", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, u.ID, string(u.Kind), h.cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		User:    account(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: next.Raw, Expires: next.Exp},
	})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body has none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestContext(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.tokens.RevokeByHash(ctx, hash); err != nil {
			h.logger.Error("revoke refresh failed", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}

	bearer, ok := middleware.BearerToken(c.Request())
	if !ok {
		return badRequest(c, "provide Authorization header or refresh_token")
	}
	claims, err := utils.ParseAccessToken(h.cfg.JWTSecret, bearer)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	uid, _ := claims.UserID()
	if err := h.tokens.RevokeAllForUser(ctx, uid); err != nil {
		h.logger.Error("revoke sessions failed", "user_id", uid, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword replaces the caller's password and ends all sessions.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if !utils.ValidPassword(req.New) {
		return badRequest(c, "password needs 8-72 characters with upper case, lower case and a digit")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Current) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := h.users.UpdatePassword(ctx, uid, req.New, h.cfg.BcryptCost); err != nil {
		h.logger.Error("update password failed", "user_id", uid, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update password failed"})
	}
	if err := h.tokens.RevokeAllForUser(ctx, uid); err != nil {
		h.logger.Warn("revoke sessions after password change failed", "user_id", uid, "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	return h.respondAccount(ctx, c, uid)
}

// Account returns any account by id. Admin only.
func (h *AuthHandler) Account(c echo.Context) error {
	id, ok := idParam(c, "account_id")
	if !ok {
		return badRequest(c, "invalid account id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	return h.respondAccount(ctx, c, id)
}

func (h *AuthHandler) respondAccount(ctx context.Context, c echo.Context, id uint64) error {
	u, err := h.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}
	if err != nil {
		h.logger.Error("load account failed", "user_id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load account failed"})
	}
	return c.JSON(http.StatusOK, account(u))
}

// SearchAccounts lists accounts whose email contains ?email=. Admin only.
func (h *AuthHandler) SearchAccounts(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("email"))
	if q == "" {
		return badRequest(c, "email query required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	users, err := h.users.Search(ctx, q, 50)
	if err != nil {
		h.logger.Error("search accounts failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	out := make([]accountPart, len(users))
	for i, u := range users {
		out[i] = account(u)
	}
	return c.JSON(http.StatusOK, out)
}
