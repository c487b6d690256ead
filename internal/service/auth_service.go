package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"weather_favorites/internal/models"
	"weather_favorites/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 7 * 24 * time.Hour

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid token"
	msgUserNotFound       = "User not found"
	msgUsernameTaken      = "Username already exists"
	msgEmailTaken         = "Email already exists"
	msgWrongPassword      = "Current password is incorrect"
)

type AuthOptions struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService handles accounts and sessions. A session token is valid only
// while its embedded version equals the user's stored token_version.
type AuthService struct {
	users  repository.Users
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewAuthService(users repository.Users, opts AuthOptions) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:  users,
		secret: []byte(opts.Secret),
		ttl:    opts.TokenTTL,
		cost:   opts.BcryptCost,
		now:    time.Now,
	}
}

// Claims defines JWT claims
type Claims struct {
	UserID       int    `json:"userId"`
	Username     string `json:"username"`
	TokenVersion int    `json:"tokenVersion"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, in models.RegisterInput) (Session, error) {
	in.Email = models.BlankToNil(in.Email)
	in.LastName = models.BlankToNil(in.LastName)
	in.ProfileImageURL = models.BlankToNil(in.ProfileImageURL)
	if err := models.Validate(in); err != nil {
		return Session{}, validationError(err)
	}

	taken, err := s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		return Session{}, err
	}
	if taken {
		return Session{}, conflictError(msgUsernameTaken, nil)
	}
	if in.Email != nil {
		taken, err = s.users.EmailExists(ctx, *in.Email)
		if err != nil {
			return Session{}, err
		}
		if taken {
			return Session{}, conflictError(msgEmailTaken, nil)
		}
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	firstName := strings.TrimSpace(in.FirstName)
	id, err := s.users.Create(ctx, models.User{
		Username:        in.Username,
		PasswordHash:    hash,
		Email:           in.Email,
		FirstName:       &firstName,
		LastName:        in.LastName,
		ProfileImageURL: in.ProfileImageURL,
		TokenVersion:    1,
	})
	if err != nil {
		// lost a race against a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, conflictError("Username or email already exists", err)
		}
		return Session{}, err
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if u == nil {
		return Session{}, fmt.Errorf("user %d missing after insert", id)
	}
	return s.session(u)
}

// Login checks credentials and bumps token_version, revoking every earlier
// token of the user.
func (s *AuthService) Login(ctx context.Context, in models.LoginInput) (Session, error) {
	if err := models.Validate(in); err != nil {
		return Session{}, validationError(err)
	}

	u, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return Session{}, err
	}
	if u == nil {
		return Session{}, authError(msgInvalidCredentials)
	}
	if err := verifyPassword(u.PasswordHash, in.Password); err != nil {
		return Session{}, authError(msgInvalidCredentials)
	}

	version, err := s.users.BumpTokenVersion(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, authError(msgInvalidCredentials)
		}
		return Session{}, err
	}
	u.TokenVersion = version
	return s.session(u)
}

func (s *AuthService) Logout(ctx context.Context, userID int) error {
	if _, err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authError(msgUserNotFound)
		}
		return err
	}
	return nil
}

// ChangePassword requires the current password. Existing tokens stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, in models.ChangePasswordInput) error {
	if err := models.Validate(in); err != nil {
		return validationError(err)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return authError(msgUserNotFound)
	}
	if err := verifyPassword(u.PasswordHash, in.CurrentPassword); err != nil {
		return authError(msgWrongPassword)
	}

	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authError(msgUserNotFound)
		}
		return err
	}
	return nil
}

// VerifySession validates signature, expiry and token version.
func (s *AuthService) VerifySession(ctx context.Context, token string) (Principal, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Principal{}, authError(msgInvalidToken)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return Principal{}, err
	}
	if u == nil || u.TokenVersion != claims.TokenVersion {
		return Principal{}, authError(msgInvalidToken)
	}
	return Principal{ID: u.ID, Username: u.Username}, nil
}

func (s *AuthService) Me(ctx context.Context, userID int) (models.PublicUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.PublicUser{}, err
	}
	if u == nil {
		return models.PublicUser{}, authError(msgUserNotFound)
	}
	return u.Public(), nil
}

// UpdateUser applies a partial profile update. Sending an empty string for
// email, lastName or profileImageUrl clears that field.
func (s *AuthService) UpdateUser(ctx context.Context, userID int, in models.UpdateUserInput) (models.PublicUser, error) {
	check := in
	check.Email = models.BlankToNil(in.Email)
	check.LastName = models.BlankToNil(in.LastName)
	check.ProfileImageURL = models.BlankToNil(in.ProfileImageURL)
	if err := models.Validate(check); err != nil {
		return models.PublicUser{}, validationError(err)
	}

	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.PublicUser{}, err
	}
	if current == nil {
		return models.PublicUser{}, authError(msgUserNotFound)
	}

	if in.Username != nil && *in.Username != current.Username {
		taken, err := s.users.UsernameExists(ctx, *in.Username)
		if err != nil {
			return models.PublicUser{}, err
		}
		if taken {
			return models.PublicUser{}, conflictError(msgUsernameTaken, nil)
		}
	}
	if check.Email != nil && (current.Email == nil || *check.Email != *current.Email) {
		taken, err := s.users.EmailExists(ctx, *check.Email)
		if err != nil {
			return models.PublicUser{}, err
		}
		if taken {
			return models.PublicUser{}, conflictError(msgEmailTaken, nil)
		}
	}

	patch := in.Patch()
	if in.Email != nil {
		patch.Email = emptyIfNil(check.Email)
	}
	if in.FirstName != nil {
		first := strings.TrimSpace(*in.FirstName)
		patch.FirstName = &first
	}
	if in.LastName != nil {
		patch.LastName = emptyIfNil(check.LastName)
	}
	if in.ProfileImageURL != nil {
		patch.ProfileImageURL = emptyIfNil(check.ProfileImageURL)
	}

	u, err := s.users.Update(ctx, userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return models.PublicUser{}, conflictError("Username or email already exists", err)
		case errors.Is(err, repository.ErrNotFound):
			return models.PublicUser{}, authError(msgUserNotFound)
		}
		return models.PublicUser{}, err
	}
	return u.Public(), nil
}

// emptyIfNil maps a cleared optional field to "", which the store writes as NULL.
func emptyIfNil(s *string) *string {
	if s == nil {
		empty := ""
		return &empty
	}
	return s
}

func (s *AuthService) session(u *models.User) (Session, error) {
	token, err := s.issueToken(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u.Public(), Token: token}, nil
}

// issueToken signs an HS256 token for u at its current token version.
func (s *AuthService) issueToken(u *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:       u.ID,
		Username:     u.Username,
		TokenVersion: u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) parseToken(accessToken string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// verifyPassword refuses inputs bcrypt would silently truncate.
func verifyPassword(hash, password string) error {
	if len(password) > models.MaxPasswordBytes {
		return bcrypt.ErrPasswordTooLong
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
