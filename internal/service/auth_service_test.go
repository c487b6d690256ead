package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"weather_favorites/internal/models"
	"weather_favorites/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// memUsers is an in-memory repository.Users used to exercise full flows.
type memUsers struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.User

	// optional overrides
	GetByIDFn func(ctx context.Context, id int) (*models.User, error)
	CreateFn  func(ctx context.Context, u models.User) (int, error)
	UpdateFn  func(ctx context.Context, id int, patch models.UserPatch) (*models.User, error)
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int]*models.User{}}
}

func (m *memUsers) Create(ctx context.Context, u models.User) (int, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == u.Username {
			return 0, repository.ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = &u
	return u.ID, nil
}

func (m *memUsers) GetByID(ctx context.Context, id int) (*models.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	u, err := m.GetByUsername(ctx, username)
	return u != nil, err
}

func (m *memUsers) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email != nil && *u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) BumpTokenVersion(_ context.Context, id int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return 0, fmt.Errorf("bump: %w", repository.ErrNotFound)
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) Update(ctx context.Context, id int, patch models.UserPatch) (*models.User, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, patch)
	}
	m.mu.Lock()
	u, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	set := func(dst **string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			*dst = nil
			return
		}
		s := *v
		*dst = &s
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	set(&u.Email, patch.Email)
	set(&u.FirstName, patch.FirstName)
	set(&u.LastName, patch.LastName)
	set(&u.ProfileImageURL, patch.ProfileImageURL)
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func newTestAuth(users *memUsers) *AuthService {
	return NewAuthService(users, AuthOptions{Secret: testSecret, BcryptCost: bcrypt.MinCost})
}

func strp(s string) *string { return &s }

func validRegister(username string) models.RegisterInput {
	return models.RegisterInput{
		Username:  username,
		Password:  "Str0ng!Pass",
		FirstName: "Alice",
	}
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected error kind %v, got %v", kind, err)
	}
}

func tokenVersionOf(t *testing.T, token string) int {
	t.Helper()
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return claims.TokenVersion
}

// --- Register ---

func TestAuthService_Register_IssuesFirstVersionToken(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	in := validRegister("alice")
	in.Email = strp("alice@example.com")
	sess, err := svc.Register(ctx, in)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if sess.User.Username != "alice" || sess.Token == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if v := tokenVersionOf(t, sess.Token); v != 1 {
		t.Fatalf("expected tokenVersion 1, got %d", v)
	}

	stored := users.byID[sess.User.ID]
	if stored.PasswordHash == in.Password {
		t.Fatalf("password stored in plain text")
	}
	if err := verifyPassword(stored.PasswordHash, in.Password); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}

	p, err := svc.VerifySession(ctx, sess.Token)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	me, err := svc.Me(ctx, p.ID)
	if err != nil || me.Username != "alice" {
		t.Fatalf("Me = %+v, %v", me, err)
	}
}

func TestAuthService_Register_Errors(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	first := validRegister("alice")
	first.Email = strp("alice@example.com")
	if _, err := svc.Register(ctx, first); err != nil {
		t.Fatalf("seed register: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*models.RegisterInput)
		kind    error
		wantMsg string
	}{
		{
			name:   "weak password",
			mutate: func(in *models.RegisterInput) { in.Password = "password" },
			kind:   ErrValidation,
		},
		{
			name:   "bad username characters",
			mutate: func(in *models.RegisterInput) { in.Username = "bob smith" },
			kind:   ErrValidation,
		},
		{
			name:   "invalid email",
			mutate: func(in *models.RegisterInput) { in.Email = strp("not-an-email") },
			kind:   ErrValidation,
		},
		{
			name:    "username taken",
			mutate:  func(in *models.RegisterInput) { in.Username = "alice" },
			kind:    ErrConflict,
			wantMsg: "Username already exists",
		},
		{
			name:    "email taken",
			mutate:  func(in *models.RegisterInput) { in.Email = strp("alice@example.com") },
			kind:    ErrConflict,
			wantMsg: "Email already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegister("bob")
			tt.mutate(&in)
			_, err := svc.Register(ctx, in)
			requireKind(t, err, tt.kind)
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestAuthService_Register_BlankEmailIsOmitted(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)

	in := validRegister("carol")
	in.Email = strp("   ")
	sess, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.User.Email != nil {
		t.Fatalf("expected nil email, got %q", *sess.User.Email)
	}
}

func TestAuthService_Register_InsertRaceIsConflict(t *testing.T) {
	users := newMemUsers()
	users.CreateFn = func(context.Context, models.User) (int, error) {
		return 0, fmt.Errorf("insert user: %w", repository.ErrDuplicate)
	}
	svc := newTestAuth(users)

	_, err := svc.Register(context.Background(), validRegister("dave"))
	requireKind(t, err, ErrConflict)
}

// --- Login / Logout ---

func TestAuthService_Login_RotatesTokens(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	reg, err := svc.Register(ctx, validRegister("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	first, err := svc.Login(ctx, models.LoginInput{Username: "alice", Password: "Str0ng!Pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if v := tokenVersionOf(t, first.Token); v != 2 {
		t.Fatalf("expected tokenVersion 2 after login, got %d", v)
	}
	// registration token is revoked by the login
	_, err = svc.VerifySession(ctx, reg.Token)
	requireKind(t, err, ErrAuth)

	second, err := svc.Login(ctx, models.LoginInput{Username: "alice", Password: "Str0ng!Pass"})
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	_, err = svc.VerifySession(ctx, first.Token)
	requireKind(t, err, ErrAuth)
	if _, err := svc.VerifySession(ctx, second.Token); err != nil {
		t.Fatalf("latest token should verify: %v", err)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validRegister("alice")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, in := range []models.LoginInput{
		{Username: "alice", Password: "Wr0ng!Pass"},
		{Username: "nobody", Password: "Str0ng!Pass"},
	} {
		_, err := svc.Login(ctx, in)
		requireKind(t, err, ErrAuth)
		if err.Error() != "Invalid credentials" {
			t.Fatalf("message = %q", err.Error())
		}
	}

	_, err := svc.Login(ctx, models.LoginInput{Username: "alice"})
	requireKind(t, err, ErrValidation)
}

func TestAuthService_Logout_RevokesToken(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	sess, err := svc.Register(ctx, validRegister("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, sess.User.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = svc.VerifySession(ctx, sess.Token)
	requireKind(t, err, ErrAuth)

	err = svc.Logout(ctx, 999)
	requireKind(t, err, ErrAuth)
}

// --- ChangePassword ---

func TestAuthService_ChangePassword(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	sess, err := svc.Register(ctx, validRegister("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id := sess.User.ID

	err = svc.ChangePassword(ctx, id, models.ChangePasswordInput{CurrentPassword: "Wr0ng!Pass", NewPassword: "N3w!Passw0rd"})
	requireKind(t, err, ErrAuth)
	if err.Error() != "Current password is incorrect" {
		t.Fatalf("message = %q", err.Error())
	}

	err = svc.ChangePassword(ctx, id, models.ChangePasswordInput{CurrentPassword: "Str0ng!Pass", NewPassword: "weak"})
	requireKind(t, err, ErrValidation)

	if err := svc.ChangePassword(ctx, id, models.ChangePasswordInput{CurrentPassword: "Str0ng!Pass", NewPassword: "N3w!Passw0rd"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.Login(ctx, models.LoginInput{Username: "alice", Password: "N3w!Passw0rd"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	_, err = svc.Login(ctx, models.LoginInput{Username: "alice", Password: "Str0ng!Pass"})
	requireKind(t, err, ErrAuth)
}

func TestAuthService_PasswordsBeyondBcryptLimit(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	tooLong := validRegister("bob")
	tooLong.Password = "Str0ng!Pass" + strings.Repeat("a", 70)
	_, err := svc.Register(ctx, tooLong)
	requireKind(t, err, ErrValidation)
	if len(users.byID) != 0 {
		t.Fatalf("no user must be stored, got %d", len(users.byID))
	}

	atLimit := validRegister("alice")
	atLimit.Password = "Str0ng!Pass" + strings.Repeat("a", models.MaxPasswordBytes-len("Str0ng!Pass"))
	sess, err := svc.Register(ctx, atLimit)
	if err != nil {
		t.Fatalf("Register at limit: %v", err)
	}

	if _, err := svc.Login(ctx, models.LoginInput{Username: "alice", Password: atLimit.Password}); err != nil {
		t.Fatalf("login at limit: %v", err)
	}
	_, err = svc.Login(ctx, models.LoginInput{Username: "alice", Password: atLimit.Password + "EXTRA"})
	requireKind(t, err, ErrAuth)

	err = svc.ChangePassword(ctx, sess.User.ID, models.ChangePasswordInput{
		CurrentPassword: atLimit.Password,
		NewPassword:     tooLong.Password,
	})
	requireKind(t, err, ErrValidation)
}

// --- VerifySession ---

func TestAuthService_VerifySession_RejectsBadTokens(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	sess, err := svc.Register(ctx, validRegister("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	other := NewAuthService(users, AuthOptions{Secret: "ffffffffffffffffffffffffffffffff", BcryptCost: bcrypt.MinCost})
	foreign, err := other.issueToken(&models.User{ID: sess.User.ID, Username: "alice", TokenVersion: 1})
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	expiredSvc := newTestAuth(users)
	expiredSvc.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	expired, err := expiredSvc.issueToken(&models.User{ID: sess.User.ID, Username: "alice", TokenVersion: 1})
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: sess.User.ID, TokenVersion: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	ghost, err := svc.issueToken(&models.User{ID: 404, Username: "ghost", TokenVersion: 1})
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"expired":      expired,
		"alg none":     unsigned,
		"deleted user": ghost,
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifySession(ctx, token)
			requireKind(t, err, ErrAuth)
		})
	}
}

func TestAuthService_VerifySession_StoreErrorIsNotAuth(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	token, err := svc.issueToken(&models.User{ID: 1, Username: "alice", TokenVersion: 1})
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	users.GetByIDFn = func(context.Context, int) (*models.User, error) {
		return nil, errors.New("db down")
	}

	_, err = svc.VerifySession(context.Background(), token)
	if err == nil || errors.Is(err, ErrAuth) {
		t.Fatalf("expected a plain store error, got %v", err)
	}
}

// --- UpdateUser ---

func TestAuthService_UpdateUser(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	alice := validRegister("alice")
	alice.Email = strp("alice@example.com")
	a, err := svc.Register(ctx, alice)
	if err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	bob := validRegister("bob")
	bob.Email = strp("bob@example.com")
	if _, err := svc.Register(ctx, bob); err != nil {
		t.Fatalf("Register bob: %v", err)
	}

	_, err = svc.UpdateUser(ctx, a.User.ID, models.UpdateUserInput{Email: strp("bob@example.com")})
	requireKind(t, err, ErrConflict)

	_, err = svc.UpdateUser(ctx, a.User.ID, models.UpdateUserInput{Username: strp("bob")})
	requireKind(t, err, ErrConflict)

	_, err = svc.UpdateUser(ctx, a.User.ID, models.UpdateUserInput{Email: strp("nope")})
	requireKind(t, err, ErrValidation)

	// keeping one's own username and email is not a conflict
	u, err := svc.UpdateUser(ctx, a.User.ID, models.UpdateUserInput{
		Username:  strp("alice"),
		Email:     strp("alice@example.com"),
		FirstName: strp("  Alicia "),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if *u.FirstName != "Alicia" {
		t.Fatalf("first name = %q", *u.FirstName)
	}

	u, err = svc.UpdateUser(ctx, a.User.ID, models.UpdateUserInput{Email: strp("")})
	if err != nil {
		t.Fatalf("clear email: %v", err)
	}
	if u.Email != nil {
		t.Fatalf("expected cleared email, got %q", *u.Email)
	}

	u, err = svc.UpdateUser(ctx, a.User.ID, models.UpdateUserInput{})
	if err != nil || u.Username != "alice" {
		t.Fatalf("empty patch = %+v, %v", u, err)
	}
}

func TestAuthService_UpdateUser_StoreDuplicateIsConflict(t *testing.T) {
	users := newMemUsers()
	svc := newTestAuth(users)
	ctx := context.Background()

	sess, err := svc.Register(ctx, validRegister("alice"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	users.UpdateFn = func(context.Context, int, models.UserPatch) (*models.User, error) {
		return nil, fmt.Errorf("update user: %w", repository.ErrDuplicate)
	}

	_, err = svc.UpdateUser(ctx, sess.User.ID, models.UpdateUserInput{Email: strp("new@example.com")})
	requireKind(t, err, ErrConflict)
}
