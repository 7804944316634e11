package users

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/viewtube/viewtube/internal/apperror"
	"github.com/viewtube/viewtube/internal/config"
	"github.com/viewtube/viewtube/internal/mediahost"
)

// mockUserRepo lets each test stub out exactly the calls it expects.
type mockUserRepo struct {
	createFunc               func(ctx context.Context, user *User) error
	findByIDFunc             func(ctx context.Context, id string) (*User, error)
	findByUsernameFunc       func(ctx context.Context, username string) (*User, error)
	findByEmailFunc          func(ctx context.Context, email string) (*User, error)
	usernameOrEmailTakenFunc func(ctx context.Context, username, email string) (bool, error)
	updateRefreshTokenFunc   func(ctx context.Context, id string, token *string) error
	updatePasswordFunc       func(ctx context.Context, id, passwordHash string) error
	updateAccountFunc        func(ctx context.Context, id, fullName, email string) error
	updateAvatarFunc         func(ctx context.Context, id, url, publicID string) error
	updateCoverFunc          func(ctx context.Context, id, url, publicID string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	return m.createFunc(ctx, user)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	return m.findByUsernameFunc(ctx, username)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockUserRepo) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	return m.usernameOrEmailTakenFunc(ctx, username, email)
}

func (m *mockUserRepo) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	return m.updateRefreshTokenFunc(ctx, id, token)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.updatePasswordFunc(ctx, id, passwordHash)
}

func (m *mockUserRepo) UpdateAccount(ctx context.Context, id, fullName, email string) error {
	return m.updateAccountFunc(ctx, id, fullName, email)
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id, url, publicID string) error {
	return m.updateAvatarFunc(ctx, id, url, publicID)
}

func (m *mockUserRepo) UpdateCover(ctx context.Context, id, url, publicID string) error {
	return m.updateCoverFunc(ctx, id, url, publicID)
}

// mockMediaHost records uploads and deletions; override the funcs to inject
// failures.
type mockMediaHost struct {
	uploadFunc func(ctx context.Context, folder, filename string, content io.Reader, contentType string) (*mediahost.Asset, error)
	deleteFunc func(ctx context.Context, publicID string) error

	uploads []string
	deletes []string
}

func (m *mockMediaHost) Upload(ctx context.Context, folder, filename string, content io.Reader, contentType string) (*mediahost.Asset, error) {
	m.uploads = append(m.uploads, folder+"/"+filename)
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, folder, filename, content, contentType)
	}
	return &mediahost.Asset{
		URL:      "https://media.example.com/" + folder + "/" + filename,
		PublicID: folder + "/" + filename,
	}, nil
}

func (m *mockMediaHost) Delete(ctx context.Context, publicID string) error {
	m.deletes = append(m.deletes, publicID)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, publicID)
	}
	return nil
}

const testMaxUpload = 5 * 1024 * 1024

func testTokenIssuer() *TokenIssuer {
	return NewTokenIssuer(config.TokenConfig{
		AccessSecret:  "test-access-secret-0123456789abcdef",
		RefreshSecret: "test-refresh-secret-0123456789abcdef",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
	})
}

func newTestService(repo *mockUserRepo, media *mockMediaHost) UserService {
	return NewUserService(repo, media, testTokenIssuer(), testMaxUpload)
}

// pngUpload builds a minimal upload whose magic bytes pass the PNG check.
func pngUpload(name string) *FileUpload {
	return &FileUpload{
		Filename:    name,
		ContentType: "image/png",
		Data:        []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00},
	}
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "Ada@Example.com",
		Username: "AdaL",
		Password: "correct horse battery staple",
		Avatar:   pngUpload("avatar.png"),
	}
}

func TestRegister_Success(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		usernameOrEmailTakenFunc: func(ctx context.Context, username, email string) (bool, error) {
			return false, nil
		},
		createFunc: func(ctx context.Context, user *User) error {
			created = user
			return nil
		},
	}
	media := &mockMediaHost{}

	service := newTestService(repo, media)

	user, err := service.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "adal" {
		t.Errorf("expected lower-cased username, got %q", user.Username)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("expected lower-cased email, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct horse battery staple" {
		t.Error("expected password to be stored as a hash")
	}
	if !verifyPassword("correct horse battery staple", user.PasswordHash) {
		t.Error("stored hash does not verify against the original password")
	}
	if user.AvatarURL == "" || user.AvatarPublicID == "" {
		t.Errorf("expected avatar reference to be set, got %q/%q", user.AvatarURL, user.AvatarPublicID)
	}
	if user.CoverURL != nil {
		t.Error("expected no cover image when none was supplied")
	}
	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if len(media.uploads) != 1 {
		t.Errorf("expected exactly one upload, got %d", len(media.uploads))
	}
}

func TestRegister_SanitizesFullName(t *testing.T) {
	repo := &mockUserRepo{
		usernameOrEmailTakenFunc: func(ctx context.Context, username, email string) (bool, error) {
			return false, nil
		},
		createFunc: func(ctx context.Context, user *User) error { return nil },
	}

	service := newTestService(repo, &mockMediaHost{})

	input := validRegisterInput()
	input.FullName = "<script>alert(1)</script>Ada"

	user, err := service.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.FullName != "Ada" {
		t.Errorf("expected HTML stripped from full name, got %q", user.FullName)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockMediaHost{})

	input := validRegisterInput()
	input.Email = "   "

	_, err := service.Register(context.Background(), input)
	assertAppError(t, err, 400)
}

func TestRegister_MissingAvatar(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockMediaHost{})

	input := validRegisterInput()
	input.Avatar = nil

	_, err := service.Register(context.Background(), input)
	assertAppError(t, err, 400)
}

func TestRegister_DuplicateUser(t *testing.T) {
	repo := &mockUserRepo{
		usernameOrEmailTakenFunc: func(ctx context.Context, username, email string) (bool, error) {
			return true, nil
		},
	}
	media := &mockMediaHost{}

	service := newTestService(repo, media)

	_, err := service.Register(context.Background(), validRegisterInput())
	assertAppError(t, err, 409)
	if len(media.uploads) != 0 {
		t.Error("expected no upload when the user already exists")
	}
}

func TestRegister_AvatarUploadFailureAborts(t *testing.T) {
	repo := &mockUserRepo{
		usernameOrEmailTakenFunc: func(ctx context.Context, username, email string) (bool, error) {
			return false, nil
		},
	}
	media := &mockMediaHost{
		uploadFunc: func(ctx context.Context, folder, filename string, content io.Reader, contentType string) (*mediahost.Asset, error) {
			return nil, errors.New("bucket unreachable")
		},
	}

	service := newTestService(repo, media)

	_, err := service.Register(context.Background(), validRegisterInput())
	assertAppError(t, err, 400)
}

func TestRegister_CoverUploadFailureDegrades(t *testing.T) {
	repo := &mockUserRepo{
		usernameOrEmailTakenFunc: func(ctx context.Context, username, email string) (bool, error) {
			return false, nil
		},
		createFunc: func(ctx context.Context, user *User) error { return nil },
	}
	media := &mockMediaHost{
		uploadFunc: func(ctx context.Context, folder, filename string, content io.Reader, contentType string) (*mediahost.Asset, error) {
			if folder == "covers" {
				return nil, errors.New("bucket unreachable")
			}
			return &mediahost.Asset{URL: "https://media.example.com/" + folder + "/" + filename, PublicID: folder + "/" + filename}, nil
		},
	}

	service := newTestService(repo, media)

	input := validRegisterInput()
	input.Cover = pngUpload("cover.png")

	user, err := service.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("expected registration to survive a failed cover upload, got %v", err)
	}
	if user.CoverURL != nil || user.CoverPublicID != nil {
		t.Error("expected no cover reference after a failed cover upload")
	}
}

func TestRegister_RejectsSpoofedContentType(t *testing.T) {
	repo := &mockUserRepo{
		usernameOrEmailTakenFunc: func(ctx context.Context, username, email string) (bool, error) {
			return false, nil
		},
	}

	service := newTestService(repo, &mockMediaHost{})

	input := validRegisterInput()
	input.Avatar = &FileUpload{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Data:        []byte("#!/bin/sh\nrm -rf /"),
	}

	_, err := service.Register(context.Background(), input)
	assertAppError(t, err, 400)
}

// loginFixture returns a repo pre-loaded with one user whose password is
// "hunter2hunter2", plus a pointer that tracks the stored refresh token.
func loginFixture(t *testing.T) (*mockUserRepo, *User, **string) {
	t.Helper()

	hash, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hashing fixture password: %v", err)
	}

	user := &User{
		ID:           "user-1",
		Username:     "ada",
		Email:        "ada@example.com",
		FullName:     "Ada Lovelace",
		PasswordHash: hash,
	}

	stored := new(*string)
	repo := &mockUserRepo{
		findByUsernameFunc: func(ctx context.Context, username string) (*User, error) {
			if username == user.Username {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
		findByEmailFunc: func(ctx context.Context, email string) (*User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
		findByIDFunc: func(ctx context.Context, id string) (*User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
		updateRefreshTokenFunc: func(ctx context.Context, id string, token *string) error {
			*stored = token
			user.RefreshToken = token
			return nil
		},
	}

	return repo, user, stored
}

func TestLogin_ByUsername(t *testing.T) {
	repo, _, stored := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})

	user, pair, err := service.Login(context.Background(), LoginInput{
		Identifier: Identifier{Kind: ByUsername, Value: "Ada"},
		Password:   "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("unexpected user %q", user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if *stored == nil || **stored != pair.RefreshToken {
		t.Error("expected the issued refresh token to be persisted")
	}
}

func TestLogin_ByEmail(t *testing.T) {
	repo, _, _ := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})

	_, pair, err := service.Login(context.Background(), LoginInput{
		Identifier: Identifier{Kind: ByEmail, Value: "ADA@example.com"},
		Password:   "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The minted access token must verify and carry the user's identity.
	claims, err := testTokenIssuer().VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "ada" || claims.Email != "ada@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	repo, _, _ := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})

	_, _, err := service.Login(context.Background(), LoginInput{
		Identifier: Identifier{Kind: ByUsername, Value: "ghost"},
		Password:   "whatever",
	})
	assertAppError(t, err, 404)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo, _, _ := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})

	_, _, err := service.Login(context.Background(), LoginInput{
		Identifier: Identifier{Kind: ByUsername, Value: "ada"},
		Password:   "wrong password",
	})
	assertAppError(t, err, 401)
}

func TestLogin_EmptyIdentifier(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockMediaHost{})

	_, _, err := service.Login(context.Background(), LoginInput{
		Identifier: Identifier{Kind: ByUsername, Value: "  "},
		Password:   "hunter2hunter2",
	})
	assertAppError(t, err, 400)
}

func TestRefresh_RotatesStoredToken(t *testing.T) {
	repo, _, stored := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})
	ctx := context.Background()

	_, pair, err := service.Login(ctx, LoginInput{
		Identifier: Identifier{Kind: ByUsername, Value: "ada"},
		Password:   "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	fresh, err := service.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatal("expected a full new pair")
	}
	// Rotation must produce a new token even when both issuances land in the
	// same wall-clock second; otherwise the presented token stays valid.
	if fresh.RefreshToken == pair.RefreshToken {
		t.Error("expected rotation to issue a different refresh token")
	}
	if *stored == nil || **stored != fresh.RefreshToken {
		t.Error("expected the stored token to be rotated to the new refresh token")
	}

	// The rotated-out token must now be rejected.
	_, err = service.Refresh(ctx, pair.RefreshToken)
	assertAppError(t, err, 401)
}

func TestRefresh_ReusedTokenRejected(t *testing.T) {
	repo, user, _ := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})

	// A token that verifies but is no longer the stored one: it was rotated
	// out by a later issuance.
	old, err := testTokenIssuer().IssueRefresh(user.ID)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	current := "some-other-stored-token"
	user.RefreshToken = &current

	_, err = service.Refresh(context.Background(), old)
	assertAppError(t, err, 401)
}

func TestRefresh_MissingToken(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockMediaHost{})

	_, err := service.Refresh(context.Background(), "")
	assertAppError(t, err, 401)
}

func TestRefresh_GarbageToken(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockMediaHost{})

	_, err := service.Refresh(context.Background(), "not.a.jwt")
	assertAppError(t, err, 401)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	repo, user, _ := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})

	expiredIssuer := NewTokenIssuer(config.TokenConfig{
		AccessSecret:  "test-access-secret-0123456789abcdef",
		RefreshSecret: "test-refresh-secret-0123456789abcdef",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    -time.Minute,
	})
	token, err := expiredIssuer.IssueRefresh(user.ID)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	_, err = service.Refresh(context.Background(), token)
	assertAppError(t, err, 401)
}

func TestLogout_ThenRefreshRejected(t *testing.T) {
	repo, user, stored := loginFixture(t)
	service := newTestService(repo, &mockMediaHost{})
	ctx := context.Background()

	_, pair, err := service.Login(ctx, LoginInput{
		Identifier: Identifier{Kind: ByUsername, Value: "ada"},
		Password:   "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := service.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if *stored != nil {
		t.Error("expected stored refresh token to be cleared on logout")
	}

	// The token from before logout still verifies cryptographically but must
	// be rejected because nothing is stored anymore.
	_, err = service.Refresh(ctx, pair.RefreshToken)
	assertAppError(t, err, 401)
}

func TestChangePassword_Success(t *testing.T) {
	repo, user, stored := loginFixture(t)

	var newHash string
	repo.updatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
		newHash = passwordHash
		user.PasswordHash = passwordHash
		return nil
	}

	service := newTestService(repo, &mockMediaHost{})

	err := service.ChangePassword(context.Background(), user.ID, "hunter2hunter2", "a brand new passphrase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verifyPassword("a brand new passphrase", newHash) {
		t.Error("new hash does not verify against the new password")
	}
	if *stored != nil {
		t.Error("expected refresh token to be cleared after a password change")
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	repo, user, _ := loginFixture(t)

	called := false
	repo.updatePasswordFunc = func(ctx context.Context, id, passwordHash string) error {
		called = true
		return nil
	}

	service := newTestService(repo, &mockMediaHost{})

	err := service.ChangePassword(context.Background(), user.ID, "not the password", "a brand new passphrase")
	assertAppError(t, err, 400)
	if called {
		t.Error("expected no password write on a failed old-password check")
	}
}

func TestChangePassword_UserNotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*User, error) {
			return nil, apperror.NewNotFound("user not found")
		},
	}

	service := newTestService(repo, &mockMediaHost{})

	err := service.ChangePassword(context.Background(), "ghost", "old", "a brand new passphrase")
	assertAppError(t, err, 404)
}

func TestChangePassword_EmptyNewPassword(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockMediaHost{})

	err := service.ChangePassword(context.Background(), "user-1", "hunter2hunter2", "   ")
	assertAppError(t, err, 400)
}

func TestUpdateAccount_Success(t *testing.T) {
	repo, user, _ := loginFixture(t)

	repo.updateAccountFunc = func(ctx context.Context, id, fullName, email string) error {
		user.FullName = fullName
		user.Email = email
		return nil
	}

	service := newTestService(repo, &mockMediaHost{})

	updated, err := service.UpdateAccount(context.Background(), user.ID, "  Ada K. Lovelace  ", "Ada.New@Example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.FullName != "Ada K. Lovelace" {
		t.Errorf("expected trimmed full name, got %q", updated.FullName)
	}
	if updated.Email != "ada.new@example.com" {
		t.Errorf("expected lower-cased email, got %q", updated.Email)
	}
}

func TestUpdateAccount_MissingFields(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockMediaHost{})

	_, err := service.UpdateAccount(context.Background(), "user-1", "", "ada@example.com")
	assertAppError(t, err, 400)
}

func TestUpdateAvatar_DeletesPreviousAsset(t *testing.T) {
	repo, user, _ := loginFixture(t)
	user.AvatarURL = "https://media.example.com/avatars/old.png"
	user.AvatarPublicID = "avatars/old.png"

	repo.updateAvatarFunc = func(ctx context.Context, id, url, publicID string) error {
		user.AvatarURL = url
		user.AvatarPublicID = publicID
		return nil
	}

	media := &mockMediaHost{}
	service := newTestService(repo, media)

	updated, err := service.UpdateAvatar(context.Background(), user.ID, *pngUpload("new.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AvatarPublicID == "avatars/old.png" {
		t.Error("expected avatar reference to change")
	}
	if len(media.deletes) != 1 || media.deletes[0] != "avatars/old.png" {
		t.Errorf("expected the previous asset to be deleted, got %v", media.deletes)
	}
}

func TestUpdateAvatar_DeleteFailureIsNonFatal(t *testing.T) {
	repo, user, _ := loginFixture(t)
	user.AvatarPublicID = "avatars/old.png"

	repo.updateAvatarFunc = func(ctx context.Context, id, url, publicID string) error {
		user.AvatarURL = url
		user.AvatarPublicID = publicID
		return nil
	}

	media := &mockMediaHost{
		deleteFunc: func(ctx context.Context, publicID string) error {
			return errors.New("object locked")
		},
	}
	service := newTestService(repo, media)

	if _, err := service.UpdateAvatar(context.Background(), user.ID, *pngUpload("new.png")); err != nil {
		t.Fatalf("expected stale-asset delete failure to be swallowed, got %v", err)
	}
}

func TestUpdateCover_FirstCoverHasNothingToDelete(t *testing.T) {
	repo, user, _ := loginFixture(t)

	repo.updateCoverFunc = func(ctx context.Context, id, url, publicID string) error {
		user.CoverURL = &url
		user.CoverPublicID = &publicID
		return nil
	}

	media := &mockMediaHost{}
	service := newTestService(repo, media)

	updated, err := service.UpdateCover(context.Background(), user.ID, *pngUpload("cover.png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CoverURL == nil {
		t.Fatal("expected cover reference to be set")
	}
	if len(media.deletes) != 0 {
		t.Errorf("expected no delete when the user had no cover, got %v", media.deletes)
	}
}

// assertAppError fails the test unless err is an AppError carrying the given
// HTTP status code.
func assertAppError(t *testing.T, err error, code int) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected code %d, got %d", code, appErr.Code)
	}
}
