package repository

import (
	"context"
	"ctchen222/accounts/internal/api/models"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("api.repository")

// ErrDuplicateUser is returned by Save when the username or email is already
// taken by another record.
var ErrDuplicateUser = errors.New("user already exists")

// UserFilter selects users by exact field match. Empty fields are ignored.
type UserFilter struct {
	Username  string
	Email     string
	ExcludeID int64
}

//go:generate mockgen -source=user_repository.go -destination=mocks/mock_user_repository.go -package=mocks

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Filter(ctx context.Context, filter UserFilter) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	// UpdateProfile writes only the editable profile columns of user.
	UpdateProfile(ctx context.Context, user *models.User) error
	// UpdatePassword replaces the password hash of the user with id.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type sqliteUserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepository creates a new SQLite-based UserRepository.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &sqliteUserRepository{db: db, now: time.Now}
}

const userColumns = `id, uuid, username, email, first_name, last_name, bio, password_hash, is_active, created_at, updated_at`

// Filter returns every user matching all of the non-empty filter fields.
func (r *sqliteUserRepository) Filter(ctx context.Context, filter UserFilter) ([]models.User, error) {
	ctx, span := tracer.Start(ctx, "UserRepository.Filter")
	defer span.End()

	var (
		conds []string
		args  []any
	)
	if filter.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, filter.Username)
	}
	if filter.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, filter.Email)
	}
	if filter.ExcludeID != 0 {
		conds = append(conds, "id != ?")
		args = append(args, filter.ExcludeID)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to filter users: %w", err)
	}
	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

// GetByID retrieves a user by primary key.
func (r *sqliteUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserRepository.GetByID")
	defer span.End()

	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByUsername retrieves a user from the database by their username.
func (r *sqliteUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "UserRepository.GetByUsername")
	defer span.End()

	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *sqliteUserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No user found is not an application error
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Save inserts the user when it has no ID yet and updates it otherwise.
// On insert the ID, UUID and timestamps are filled in.
func (r *sqliteUserRepository) Save(ctx context.Context, user *models.User) error {
	ctx, span := tracer.Start(ctx, "UserRepository.Save")
	defer span.End()

	now := r.now().UTC()
	if user.ID == 0 {
		return r.insert(ctx, user, now)
	}

	query := `UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, bio = ?,
		password_hash = ?, is_active = ?, updated_at = ? WHERE id = ?`
	err := r.execUpdate(ctx, query, user.ID,
		user.Username, user.Email, user.FirstName, user.LastName, user.Bio,
		user.PasswordHash, user.IsActive, now, user.ID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	user.UpdatedAt = now
	return nil
}

// UpdateProfile writes username, first_name, last_name and bio, leaving the
// password hash, email and active flag as they are in the database.
func (r *sqliteUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	ctx, span := tracer.Start(ctx, "UserRepository.UpdateProfile")
	defer span.End()

	now := r.now().UTC()
	query := `UPDATE users SET username = ?, first_name = ?, last_name = ?, bio = ?, updated_at = ? WHERE id = ?`
	err := r.execUpdate(ctx, query, user.ID, user.Username, user.FirstName, user.LastName, user.Bio, now, user.ID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	user.UpdatedAt = now
	return nil
}

// UpdatePassword replaces only the password hash of a user.
func (r *sqliteUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ctx, span := tracer.Start(ctx, "UserRepository.UpdatePassword")
	defer span.End()

	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`
	if err := r.execUpdate(ctx, query, id, passwordHash, r.now().UTC(), id); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (r *sqliteUserRepository) execUpdate(ctx context.Context, query string, id int64, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update user %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *sqliteUserRepository) insert(ctx context.Context, user *models.User, now time.Time) error {
	if user.UUID == "" {
		user.UUID = uuid.New().String()
	}

	query := `INSERT INTO users (uuid, username, email, first_name, last_name, bio, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		user.UUID, user.Username, user.Email, user.FirstName, user.LastName, user.Bio,
		user.PasswordHash, user.IsActive, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new user id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// isUniqueViolation recognises SQLite's unique constraint error. The driver
// does not export a typed error for it.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
