package users

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/viewtube/viewtube/internal/apperror"
	"github.com/viewtube/viewtube/internal/web"
)

// Cookie names for the two session artifacts. Both are HttpOnly; the browser
// client never reads them from script.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// Handler handles HTTP requests for accounts and sessions. Handlers are
// thin: they bind the request, call the service, and render the response.
// No business logic lives here.
type Handler struct {
	service    UserService
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewHandler creates a new users handler. The TTLs size the cookie lifetimes
// to match the tokens they carry.
func NewHandler(service UserService, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{
		service:    service,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new account (POST /register, multipart).
func (h *Handler) Register(c echo.Context) error {
	avatar, err := readFormFile(c, "avatar")
	if err != nil {
		return err
	}
	if avatar == nil {
		return apperror.NewBadRequest("avatar file is required")
	}

	// Cover image is optional.
	cover, err := readFormFile(c, "coverImage")
	if err != nil {
		return err
	}

	input := RegisterInput{
		FullName: c.FormValue("fullname"),
		Email:    c.FormValue("email"),
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		Avatar:   avatar,
		Cover:    cover,
	}

	user, err := h.service.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return web.JSON(c, http.StatusCreated, "user registered successfully", user)
}

// Login authenticates a user (POST /login, JSON). On success the token pair
// is returned in the body and set as secure HttpOnly cookies.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	// Resolve the loose username/email pair into a tagged identifier.
	var ident Identifier
	switch {
	case req.Username != "":
		ident = Identifier{Kind: ByUsername, Value: req.Username}
	case req.Email != "":
		ident = Identifier{Kind: ByEmail, Value: req.Email}
	default:
		return apperror.NewBadRequest("username or email is required")
	}

	user, pair, err := h.service.Login(c.Request().Context(), LoginInput{
		Identifier: ident,
		Password:   req.Password,
	})
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)

	return web.JSON(c, http.StatusOK, "user logged in successfully", map[string]any{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Logout clears the stored refresh token and both cookies (POST /logout).
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), GetUserID(c)); err != nil {
		return err
	}

	h.clearAuthCookies(c)

	return web.JSON(c, http.StatusOK, "user logged out", nil)
}

// Refresh rotates the session's token pair (POST /refresh-token). The
// presented refresh token comes from the cookie or, failing that, the body.
func (h *Handler) Refresh(c echo.Context) error {
	presented := ""
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req RefreshRequest
		// Body is optional when the cookie is present; ignore bind errors.
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.service.Refresh(c.Request().Context(), presented)
	if err != nil {
		return err
	}

	h.setAuthCookies(c, pair)

	return web.JSON(c, http.StatusOK, "access token refreshed", pair)
}

// ChangePassword verifies the old password and sets a new one
// (POST /change-password).
func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	err := h.service.ChangePassword(c.Request().Context(), GetUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}

	return web.JSON(c, http.StatusOK, "password changed successfully", nil)
}

// CurrentUser returns the caller's own record (GET /current-user).
func (h *Handler) CurrentUser(c echo.Context) error {
	user, err := h.service.GetByID(c.Request().Context(), GetUserID(c))
	if err != nil {
		return err
	}

	return web.JSON(c, http.StatusOK, "current user fetched successfully", user)
}

// UpdateAccount updates the display name and email (PATCH /update-account).
func (h *Handler) UpdateAccount(c echo.Context) error {
	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, err := h.service.UpdateAccount(c.Request().Context(), GetUserID(c), req.FullName, req.Email)
	if err != nil {
		return err
	}

	return web.JSON(c, http.StatusOK, "account details updated successfully", user)
}

// UpdateAvatar replaces the caller's avatar (PATCH /avatar, multipart).
func (h *Handler) UpdateAvatar(c echo.Context) error {
	upload, err := readFormFile(c, "avatar")
	if err != nil {
		return err
	}
	if upload == nil {
		return apperror.NewBadRequest("avatar file is missing")
	}

	user, err := h.service.UpdateAvatar(c.Request().Context(), GetUserID(c), *upload)
	if err != nil {
		return err
	}

	return web.JSON(c, http.StatusOK, "avatar updated successfully", user)
}

// UpdateCover replaces the caller's cover image (PATCH /cover-image, multipart).
func (h *Handler) UpdateCover(c echo.Context) error {
	upload, err := readFormFile(c, "coverImage")
	if err != nil {
		return err
	}
	if upload == nil {
		return apperror.NewBadRequest("cover image file is missing")
	}

	user, err := h.service.UpdateCover(c.Request().Context(), GetUserID(c), *upload)
	if err != nil {
		return err
	}

	return web.JSON(c, http.StatusOK, "cover image updated successfully", user)
}

// --- Cookie helpers ---

// setAuthCookies sets both token cookies. Secure is enabled when the request
// arrived over TLS (directly or via X-Forwarded-Proto from the proxy).
func (h *Handler) setAuthCookies(c echo.Context, pair *TokenPair) {
	secure := isSecureRequest(c)
	c.SetCookie(sessionCookie(accessCookieName, pair.AccessToken, h.accessTTL, secure))
	c.SetCookie(sessionCookie(refreshCookieName, pair.RefreshToken, h.refreshTTL, secure))
}

// clearAuthCookies removes both token cookies by setting MaxAge to -1.
func (h *Handler) clearAuthCookies(c echo.Context) {
	secure := isSecureRequest(c)
	c.SetCookie(expiredCookie(accessCookieName, secure))
	c.SetCookie(expiredCookie(refreshCookieName, secure))
}

func sessionCookie(name, value string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
}

func expiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}

func isSecureRequest(c echo.Context) bool {
	req := c.Request()
	return req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https"
}

// --- Multipart helpers ---

// readFormFile reads a single uploaded file into memory. Returns (nil, nil)
// when the field is absent, so optional files bind cleanly.
func readFormFile(c echo.Context, field string) (*FileUpload, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == echo.ErrBadRequest {
			return nil, nil
		}
		// A request without any multipart body also lands here.
		return nil, nil
	}

	return readMultipartFile(fileHeader)
}

// readMultipartFile loads the file contents and content type from a part.
func readMultipartFile(fileHeader *multipart.FileHeader) (*FileUpload, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	return &FileUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
