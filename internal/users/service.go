package users

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viewtube/viewtube/internal/apperror"
	"github.com/viewtube/viewtube/internal/mediahost"
	"github.com/viewtube/viewtube/internal/sanitize"
)

// UserService defines the business logic contract for accounts and sessions.
// Handlers call these methods -- they never touch the repository directly.
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (*User, *TokenPair, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, presentedToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) (*User, error)
	UpdateAvatar(ctx context.Context, userID string, upload FileUpload) (*User, error)
	UpdateCover(ctx context.Context, userID string, upload FileUpload) (*User, error)
}

// userService implements UserService with argon2id hashing, JWT sessions, and
// an external media host for profile images.
type userService struct {
	repo          UserRepository
	media         mediahost.Host
	tokens        *TokenIssuer
	maxUploadSize int64
}

// NewUserService creates a new user service with the given dependencies.
func NewUserService(repo UserRepository, media mediahost.Host, tokens *TokenIssuer, maxUploadSize int64) UserService {
	return &userService{
		repo:          repo,
		media:         media,
		tokens:        tokens,
		maxUploadSize: maxUploadSize,
	}
}

// Register creates a new account. It validates the fields, checks username
// and email uniqueness, uploads the avatar (and optional cover) to the media
// host, hashes the password with argon2id, and persists the user with a
// lower-cased username.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	fullName := sanitize.Text(input.FullName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.ToLower(strings.TrimSpace(input.Username))

	if fullName == "" || email == "" || username == "" || strings.TrimSpace(input.Password) == "" {
		return nil, apperror.NewBadRequest("all fields are required")
	}
	if input.Avatar == nil {
		return nil, apperror.NewBadRequest("avatar file is required")
	}

	// Check uniqueness before doing expensive hashing and uploads.
	taken, err := s.repo.UsernameOrEmailTaken(ctx, username, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking uniqueness: %w", err))
	}
	if taken {
		return nil, apperror.NewConflict("user with email or username already exists")
	}

	// Upload the avatar. A failed avatar upload aborts registration since the
	// account would have no media reference.
	avatar, err := s.uploadImage(ctx, "avatars", *input.Avatar)
	if err != nil {
		return nil, err
	}

	// The cover image is optional; a failed upload degrades to "no cover".
	var coverURL, coverPublicID *string
	if input.Cover != nil {
		cover, err := s.uploadImage(ctx, "covers", *input.Cover)
		if err != nil {
			slog.Warn("cover upload failed during registration",
				slog.String("username", username),
				slog.Any("error", err),
			)
		} else {
			coverURL = &cover.URL
			coverPublicID = &cover.PublicID
		}
	}

	// Hash the password with argon2id (memory-hard, GPU-resistant).
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := time.Now().UTC()
	user := &User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		FullName:       fullName,
		PasswordHash:   hash,
		AvatarURL:      avatar.URL,
		AvatarPublicID: avatar.PublicID,
		CoverURL:       coverURL,
		CoverPublicID:  coverPublicID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates a user by username or email plus password. On success
// it issues an access/refresh pair and persists the refresh token on the
// user record, displacing any previously issued refresh token.
func (s *userService) Login(ctx context.Context, input LoginInput) (*User, *TokenPair, error) {
	value := strings.TrimSpace(input.Identifier.Value)
	if value == "" {
		return nil, nil, apperror.NewBadRequest("username or email is required")
	}

	var user *User
	var err error
	switch input.Identifier.Kind {
	case ByUsername:
		user, err = s.repo.FindByUsername(ctx, strings.ToLower(value))
	case ByEmail:
		user, err = s.repo.FindByEmail(ctx, strings.ToLower(value))
	default:
		return nil, nil, apperror.NewBadRequest("username or email is required")
	}
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return nil, nil, apperror.NewNotFound("user does not exist")
		}
		return nil, nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	// Verify the password against the stored argon2id hash.
	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, nil, apperror.NewUnauthorized("invalid password")
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, pair, nil
}

// Logout clears the stored refresh token unconditionally, so the session's
// refresh token can never be redeemed again.
func (s *userService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		return apperror.NewInternal(fmt.Errorf("clearing refresh token: %w", err))
	}

	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// Refresh redeems a presented refresh token for a brand-new access/refresh
// pair. Only the most recently issued refresh token is honored: a presented
// token that verifies but doesn't match the stored one means it was already
// rotated out (or the user logged out), and the request is rejected.
func (s *userService) Refresh(ctx context.Context, presentedToken string) (*TokenPair, error) {
	if presentedToken == "" {
		return nil, apperror.NewUnauthorized("unauthorized request")
	}

	userID, err := s.tokens.VerifyRefresh(presentedToken)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid refresh token")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 404 {
			return nil, apperror.NewNotFound("user not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if user.RefreshToken == nil || *user.RefreshToken != presentedToken {
		return nil, apperror.NewUnauthorized("refresh token is expired or already used")
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.Info("tokens refreshed", slog.String("user_id", user.ID))
	return pair, nil
}

// ChangePassword verifies the old password and persists a hash of the new
// one. The stored refresh token is cleared as well so sessions on other
// devices can't outlive a password change.
func (s *userService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperror.NewBadRequest("new password is required")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(oldPassword, user.PasswordHash) {
		return apperror.NewBadRequest("invalid old password")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	if err := s.repo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		// Password is already changed; the stale refresh token will still be
		// rejected once it rotates or expires. Log and carry on.
		slog.Warn("failed to clear refresh token after password change",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateAccount sets the display name and email and returns the updated record.
func (s *userService) UpdateAccount(ctx context.Context, userID, fullName, email string) (*User, error) {
	fullName = sanitize.Text(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" {
		return nil, apperror.NewBadRequest("all fields are required")
	}

	if err := s.repo.UpdateAccount(ctx, userID, fullName, email); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating account: %w", err))
	}

	return s.repo.FindByID(ctx, userID)
}

// UpdateAvatar uploads a new avatar, persists the new reference, and deletes
// the previous media asset best-effort.
func (s *userService) UpdateAvatar(ctx context.Context, userID string, upload FileUpload) (*User, error) {
	// Fetch the current record first: the old asset's public id must be read
	// before it is overwritten.
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previousID := user.AvatarPublicID

	asset, err := s.uploadImage(ctx, "avatars", upload)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAvatar(ctx, userID, asset.URL, asset.PublicID); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating avatar: %w", err))
	}

	s.deleteAsset(ctx, previousID)

	return s.repo.FindByID(ctx, userID)
}

// UpdateCover uploads a new cover image, persists the new reference, and
// deletes the previous asset best-effort.
func (s *userService) UpdateCover(ctx context.Context, userID string, upload FileUpload) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var previousID string
	if user.CoverPublicID != nil {
		previousID = *user.CoverPublicID
	}

	asset, err := s.uploadImage(ctx, "covers", upload)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCover(ctx, userID, asset.URL, asset.PublicID); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating cover image: %w", err))
	}

	s.deleteAsset(ctx, previousID)

	return s.repo.FindByID(ctx, userID)
}

// issueAndStore mints a fresh token pair and persists the refresh half on the
// user record (rotation: the write displaces the previous token). A minting
// failure indicates misconfiguration, not user error, so the cause is masked
// behind a generic 500.
func (s *userService) issueAndStore(ctx context.Context, user *User) (*TokenPair, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("generating tokens: %w", err))
	}

	if err := s.repo.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("storing refresh token: %w", err))
	}

	return pair, nil
}

// uploadImage validates an uploaded image (size, MIME allow-list, magic
// bytes) and sends it to the media host. Returns apperror.BadRequest for
// client mistakes and a wrapped BadRequest for host failures, since a failed
// required upload leaves nothing to reference.
func (s *userService) uploadImage(ctx context.Context, folder string, upload FileUpload) (*mediahost.Asset, error) {
	if len(upload.Data) == 0 {
		return nil, apperror.NewBadRequest("uploaded file is empty")
	}
	if int64(len(upload.Data)) > s.maxUploadSize {
		return nil, apperror.NewBadRequest(fmt.Sprintf("file too large; maximum size is %d MB", s.maxUploadSize/(1024*1024)))
	}
	if !mediahost.AllowedImageTypes[upload.ContentType] {
		return nil, apperror.NewBadRequest("unsupported file type: " + upload.ContentType)
	}
	if !mediahost.ValidImageMagic(upload.Data, upload.ContentType) {
		return nil, apperror.NewBadRequest("file content does not match declared type")
	}

	asset, err := s.media.Upload(ctx, folder, upload.Filename, bytes.NewReader(upload.Data), upload.ContentType)
	if err != nil {
		return nil, apperror.NewBadRequest("error while uploading file")
	}

	return asset, nil
}

// deleteAsset removes a media asset best-effort. Stale-media cleanup is
// non-critical, so failures are logged and ignored.
func (s *userService) deleteAsset(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.media.Delete(ctx, publicID); err != nil {
		slog.Warn("failed to delete previous media asset",
			slog.String("public_id", publicID),
			slog.Any("error", err),
		)
	}
}
