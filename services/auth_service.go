package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inkpost-api/config"
	"inkpost-api/models"
	"inkpost-api/repositories"
	"inkpost-api/utils"
)

const (
	// MaxAvatarBytes bounds avatar uploads.
	MaxAvatarBytes = 2 << 20
	avatarDir      = "avatars"
	tokenName      = "auth_token"

	MinNameLength = 4
	MaxNameLength = 50
)

var errInvalidCredentials = models.NewUnauthenticatedError("Invalid credentials.")

type RegisterInput struct {
	Name                 string
	Email                string
	Username             *string
	Password             string
	PasswordConfirmation string
	Avatar               *Upload
}

type ChangePasswordInput struct {
	CurrentPassword         string
	NewPassword             string
	NewPasswordConfirmation string
}

// UpdateProfileInput is a partial update; nil fields are left alone.
type UpdateProfileInput struct {
	Name     *string
	Username *string
	Email    *string
	Avatar   *Upload
}

// AvatarView is an avatar reference plus the URL a client can load it from.
type AvatarView struct {
	models.AvatarRef
	URL string `json:"url"`
}

type Profile struct {
	User       *models.User  `json:"user"`
	SavedPosts []models.Post `json:"saved_posts"`
	Avatar     *AvatarView   `json:"avatar"`
}

type AuthService struct {
	users   *repositories.UserRepository
	tokens  *repositories.TokenRepository
	posts   *repositories.PostRepository
	storage Storage
	mailer  Mailer

	secret    []byte
	ttl       time.Duration
	hashCost  int
	dummyHash []byte
	now       func() time.Time
}

func NewAuthService(
	users *repositories.UserRepository,
	tokens *repositories.TokenRepository,
	posts *repositories.PostRepository,
	storage Storage,
	mailer Mailer,
	cfg *config.Config,
) *AuthService {
	s := &AuthService{
		users:   users,
		tokens:  tokens,
		posts:   posts,
		storage: storage,
		mailer:  mailer,
		secret:  []byte(cfg.JWTSecret),
		ttl:     cfg.TokenTTL,
		now:     time.Now,
	}
	s.SetHashCost(bcrypt.DefaultCost)
	return s
}

// SetHashCost changes the bcrypt cost of new hashes. Tests use bcrypt.MinCost.
func (s *AuthService) SetHashCost(cost int) {
	s.hashCost = cost
	// Compared against when the email is unknown so both failure paths cost the same.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("inkpost-dummy-password"), cost)
}

func (s *AuthService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	var vb models.ValidationBuilder
	name := strings.TrimSpace(in.Name)
	validateName(&vb, name)
	email := strings.TrimSpace(in.Email)

	if in.Password != in.PasswordConfirmation {
		vb.Add("password", "The password field confirmation does not match.")
	}
	if taken, err := s.users.EmailTaken(ctx, email, 0); err != nil {
		return nil, err
	} else if taken {
		vb.Add("email", "The email has already been taken.")
	}
	username := normalizeOptional(in.Username)
	if username != nil {
		if taken, err := s.users.UsernameTaken(ctx, *username, 0); err != nil {
			return nil, err
		} else if taken {
			vb.Add("username", "The username has already been taken.")
		}
	}

	var avatarUpload *Upload
	if in.Avatar != nil {
		up, err := ValidateImage("avatar", in.Avatar, MaxAvatarBytes)
		if err != nil {
			if err := mergeFieldErrors(&vb, err); err != nil {
				return nil, err
			}
		}
		avatarUpload = up
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	var avatar, storedPath string
	if avatarUpload != nil {
		storedPath, err = s.storage.Put(ctx, avatarDir, avatarUpload)
		if err != nil {
			return nil, err
		}
		avatar = storedPath
	} else {
		avatar, err = GenerateAvatar(name)
		if err != nil {
			return nil, fmt.Errorf("failed to generate avatar: %w", err)
		}
	}

	user := &models.User{
		Name:     name,
		Username: username,
		Email:    email,
		Password: hashed,
		Avatar:   &avatar,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if storedPath != "" {
			discardAsset(ctx, s.storage, storedPath)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewFieldError("email", "The email has already been taken.")
		}
		return nil, err
	}

	if err := s.mailer.SendWelcome(ctx, user); err != nil {
		utils.Logger.Warn("welcome email failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// Login returns the user and a fresh bearer token. An unknown email and a wrong password
// produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, "", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", errInvalidCredentials
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) issueToken(ctx context.Context, userID uint) (string, error) {
	now := s.now()
	row := &models.PersonalAccessToken{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		Name:      tokenName,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, row); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        row.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(row.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Authenticate resolves a raw bearer token into a session. The token must verify, be
// unexpired, and still have its personal_access_tokens row.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Session, error) {
	unauthenticated := models.NewUnauthenticatedError("Unauthenticated.")

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, unauthenticated
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return nil, unauthenticated
	}

	row, err := s.tokens.FindByTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthenticated
		}
		return nil, err
	}
	if row.UserID != uint(userID) {
		return nil, unauthenticated
	}

	if err := s.tokens.Touch(ctx, row.ID, s.now()); err != nil {
		utils.Logger.Warn("failed to touch token", "token_id", row.ID, "error", err)
	}
	return &Session{UserID: row.UserID, TokenID: row.TokenID}, nil
}

// Logout revokes every token issued to the caller.
func (s *AuthService) Logout(ctx context.Context, session Session) error {
	_, err := s.tokens.DeleteAllForUser(ctx, session.UserID)
	return err
}

func (s *AuthService) currentUser(ctx context.Context, session Session) (*models.User, error) {
	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthenticatedError("Unauthenticated.")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Profile(ctx context.Context, session Session) (*Profile, error) {
	user, err := s.currentUser(ctx, session)
	if err != nil {
		return nil, err
	}
	saved, err := s.posts.ListSavedBy(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	avatar, err := s.ResolveAvatar(user)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, SavedPosts: featureImageURLs(s.storage, saved), Avatar: avatar}, nil
}

// ResolveAvatar returns the user's avatar, generating an inline one when none is set.
func (s *AuthService) ResolveAvatar(user *models.User) (*AvatarView, error) {
	ref := user.AvatarRef()
	if ref == nil {
		generated, err := GenerateAvatar(user.Name)
		if err != nil {
			return nil, err
		}
		return &AvatarView{AvatarRef: models.AvatarRef{Kind: models.AvatarInline, Value: generated}, URL: generated}, nil
	}
	if ref.Kind == models.AvatarInline {
		return &AvatarView{AvatarRef: *ref, URL: ref.Value}, nil
	}
	return &AvatarView{AvatarRef: *ref, URL: s.storage.URL(ref.Value)}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, session Session, in ChangePasswordInput) error {
	user, err := s.currentUser(ctx, session)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
		return models.NewFieldError("current_password", "The current password is incorrect.")
	}
	if in.NewPassword != in.NewPasswordConfirmation {
		return models.NewFieldError("new_password", "The new password field confirmation does not match.")
	}

	hashed, err := s.hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, user.ID, map[string]interface{}{"password": hashed}); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordChanged(ctx, user); err != nil {
		utils.Logger.Warn("password changed email failed", "user_id", user.ID, "error", err)
	}
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, session Session, in UpdateProfileInput) (*models.User, error) {
	user, err := s.currentUser(ctx, session)
	if err != nil {
		return nil, err
	}

	var vb models.ValidationBuilder
	fields := map[string]interface{}{}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		validateName(&vb, name)
		fields["name"] = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if taken, err := s.users.EmailTaken(ctx, email, user.ID); err != nil {
			return nil, err
		} else if taken {
			vb.Add("email", "The email has already been taken.")
		}
		fields["email"] = email
	}
	if in.Username != nil {
		username := normalizeOptional(in.Username)
		if username != nil {
			if taken, err := s.users.UsernameTaken(ctx, *username, user.ID); err != nil {
				return nil, err
			} else if taken {
				vb.Add("username", "The username has already been taken.")
			}
		}
		fields["username"] = username
	}

	var avatarUpload *Upload
	if in.Avatar != nil {
		up, err := ValidateImage("avatar", in.Avatar, MaxAvatarBytes)
		if err != nil {
			if err := mergeFieldErrors(&vb, err); err != nil {
				return nil, err
			}
		}
		avatarUpload = up
	}
	if err := vb.Err(); err != nil {
		return nil, err
	}

	var newPath string
	if avatarUpload != nil {
		newPath, err = s.storage.Put(ctx, avatarDir, avatarUpload)
		if err != nil {
			return nil, err
		}
		fields["avatar"] = newPath
	}

	oldPath, hadStored := user.StoredAvatarPath()
	if err := s.users.Update(ctx, user.ID, fields); err != nil {
		if newPath != "" {
			discardAsset(ctx, s.storage, newPath)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewValidationError("", map[string]string{"email": "The email has already been taken."})
		}
		return nil, err
	}
	if newPath != "" && hadStored && oldPath != newPath {
		discardAsset(ctx, s.storage, oldPath)
	}

	return s.users.FindByID(ctx, user.ID)
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// validateName checks the name after trimming, so whitespace never counts toward the minimum.
func validateName(vb *models.ValidationBuilder, name string) {
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		vb.Add("name", "The name field is required.")
	case n < MinNameLength:
		vb.Add("name", fmt.Sprintf("The name field must be at least %d characters.", MinNameLength))
	case n > MaxNameLength:
		vb.Add("name", fmt.Sprintf("The name field must not be greater than %d characters.", MaxNameLength))
	}
}
