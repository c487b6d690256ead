package repository

import (
	"context"
	"database/sql"

	"weather_favorites/internal/models"
	"weather_favorites/internal/repository/db"
)

type Users interface {
	Create(ctx context.Context, u models.User) (int, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// BumpTokenVersion increments the user's token version and returns the new value.
	BumpTokenVersion(ctx context.Context, id int) (int, error)
	UpdatePassword(ctx context.Context, id int, hash string) error
	Update(ctx context.Context, id int, patch models.UserPatch) (*models.User, error)
}

type Locations interface {
	ListByUser(ctx context.Context, userID int) ([]models.Location, error)
	// Create inserts loc unless the (user, latitude, longitude) triple exists;
	// created is false when the existing row is returned instead.
	Create(ctx context.Context, loc models.Location) (saved models.Location, created bool, err error)
	Delete(ctx context.Context, id, userID int) (bool, error)
}

type Repository struct {
	Users     Users
	Locations Locations
}

func NewRepository(conn *sql.DB, d db.Dialect) *Repository {
	return &Repository{
		Users:     NewUserRepository(conn, d),
		Locations: NewLocationRepository(conn, d),
	}
}
