package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"weather_favorites/internal/models"
	"weather_favorites/internal/repository/db"
)

type LocationRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewLocationRepository(conn *sql.DB, d db.Dialect) *LocationRepository {
	return &LocationRepository{db: conn, dialect: d}
}

var _ Locations = (*LocationRepository)(nil)

const locationColumns = `id, name, latitude, longitude, country, admin1, user_id`

const (
	selectLocationsByUserSQL = `SELECT ` + locationColumns + ` FROM locations WHERE user_id = ? ORDER BY id`
	insertLocationSQL        = `INSERT INTO locations (name, latitude, longitude, country, admin1, user_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, latitude, longitude) DO NOTHING
		RETURNING id`
	selectLocationByOwnerCoordsSQL = `SELECT ` + locationColumns + ` FROM locations WHERE user_id = ? AND latitude = ? AND longitude = ?`
	deleteLocationSQL              = `DELETE FROM locations WHERE id = ? AND user_id = ?`
)

func scanLocation(row rowScanner) (models.Location, error) {
	var (
		l               models.Location
		country, admin1 sql.NullString
		userID          sql.NullInt64
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &country, &admin1, &userID); err != nil {
		return models.Location{}, err
	}
	l.Country = stringPtr(country)
	l.Admin1 = stringPtr(admin1)
	l.UserID = intPtr(userID)
	return l, nil
}

// ListByUser returns every favorite owned by userID.
func (r *LocationRepository) ListByUser(ctx context.Context, userID int) ([]models.Location, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(selectLocationsByUserSQL), userID)
	if err != nil {
		return nil, fmt.Errorf("select locations for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]models.Location, 0, 16)
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return out, nil
}

// Create inserts loc. On a (user_id, latitude, longitude) conflict nothing is
// written and the existing row comes back with created=false.
func (r *LocationRepository) Create(ctx context.Context, loc models.Location) (models.Location, bool, error) {
	var id int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(insertLocationSQL),
		loc.Name,
		loc.Latitude,
		loc.Longitude,
		nullString(loc.Country),
		nullString(loc.Admin1),
		nullInt(loc.UserID),
	).Scan(&id)
	switch {
	case err == nil:
		loc.ID = id
		return loc, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return models.Location{}, false, fmt.Errorf("insert location %q: %w", loc.Name, err)
	}

	// DO NOTHING fired; only possible with a non-null owner.
	existing, err := scanLocation(r.db.QueryRowContext(ctx, r.dialect.Rebind(selectLocationByOwnerCoordsSQL),
		nullInt(loc.UserID), loc.Latitude, loc.Longitude))
	if err != nil {
		return models.Location{}, false, fmt.Errorf("select existing location %q: %w", loc.Name, err)
	}
	return existing, false, nil
}

// Delete removes the favorite only when both id and owner match.
func (r *LocationRepository) Delete(ctx context.Context, id, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(deleteLocationSQL), id, userID)
	if err != nil {
		return false, fmt.Errorf("delete location %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for location %d: %w", id, err)
	}
	return n > 0, nil
}
