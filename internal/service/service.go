package service

import (
	"context"
	"encoding/json"

	"weather_favorites/internal/config"
	"weather_favorites/internal/models"
	"weather_favorites/internal/repository"
)

// Session is returned by register and login.
type Session struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

// Principal is the verified caller of a request.
type Principal struct {
	ID       int
	Username string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type Authorization interface {
	Register(ctx context.Context, in models.RegisterInput) (Session, error)
	Login(ctx context.Context, in models.LoginInput) (Session, error)
	Logout(ctx context.Context, userID int) error
	ChangePassword(ctx context.Context, userID int, in models.ChangePasswordInput) error
	VerifySession(ctx context.Context, token string) (Principal, error)
	Me(ctx context.Context, userID int) (models.PublicUser, error)
	UpdateUser(ctx context.Context, userID int, in models.UpdateUserInput) (models.PublicUser, error)
}

// Locations manages saved favorites. When a Principal is present in ctx the
// target user must be that principal.
type Locations interface {
	List(ctx context.Context, userID int) ([]models.Location, error)
	// Save reports created=false when the favorite already existed.
	Save(ctx context.Context, in models.CreateLocationInput) (loc models.Location, created bool, err error)
	Delete(ctx context.Context, id, userID int) (bool, error)
}

// Weather relays Open-Meteo responses verbatim.
type Weather interface {
	Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	Search(ctx context.Context, query string) (json.RawMessage, error)
}

type Advisor interface {
	Advise(ctx context.Context, in models.AdviceInput) (string, error)
	Questions() []QuestionCategory
}

type Service struct {
	Authorization
	Locations
	Weather
	Advisor
}

// NewService wires the repository layer and config into concrete services.
func NewService(repos *repository.Repository, cfg *config.Config) *Service {
	return &Service{
		Authorization: NewAuthService(repos.Users, AuthOptions{
			Secret:     cfg.Auth.JWTSecret,
			TokenTTL:   cfg.Auth.TokenTTL,
			BcryptCost: cfg.Auth.BcryptCost,
		}),
		Locations: NewLocationService(repos.Locations, cfg.Locations.RequireAuth),
		Weather:   NewWeatherClient(cfg.Weather),
		Advisor:   NewAdviceService(cfg.AI),
	}
}
