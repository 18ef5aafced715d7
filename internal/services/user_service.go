package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/isdelr/tweetapp-be/internal/auth"
	"github.com/isdelr/tweetapp-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	SearchUsers(ctx context.Context, prefix string) ([]models.User, error)
	CreateUser(ctx context.Context, username, email, password string) (models.User, error)
	UpdatePassword(ctx context.Context, username, currentPassword, newPassword string) error
	AuthenticateUser(ctx context.Context, username, password string) (models.User, error)
	IsUsernameTaken(ctx context.Context, username string) (bool, error)
	ResolveCaller(ctx context.Context) (auth.Identity, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	return user, err
}

// getUserWhere returns the single user matching pred, including the password hash.
func (s *UserService) getUserWhere(ctx context.Context, pred sq.Sqlizer) (models.User, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(pred).ToSql()
	if err != nil {
		return models.User{}, err
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByUsername retrieves a single user by their username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	user, err := s.getUserWhere(ctx, sq.Eq{"username": username})
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// GetAllUsers lists every registered user, ordered by username.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, sq.Select(userColumns...).From("users").OrderBy("username"))
}

// SearchUsers lists the users whose username starts with prefix.
func (s *UserService) SearchUsers(ctx context.Context, prefix string) ([]models.User, error) {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
	builder := sq.Select(userColumns...).From("users").
		Where(sq.Expr(`username LIKE ? ESCAPE '\'`, escaped+"%")).
		OrderBy("username")
	return s.listUsers(ctx, builder)
}

func (s *UserService) listUsers(ctx context.Context, builder sq.SelectBuilder) ([]models.User, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = ""
		users = append(users, user)
	}
	return users, rows.Err()
}

// IsUsernameTaken reports whether an account already uses username, either as
// username or as email.
func (s *UserService) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := s.getUserWhere(ctx, sq.Or{sq.Eq{"username": username}, sq.Eq{"email": username}})
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateUser creates a new user, hashing their password.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (models.User, error) {
	taken, err := s.IsUsernameTaken(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	if !taken && email != username {
		taken, err = s.IsUsernameTaken(ctx, email)
		if err != nil {
			return models.User{}, err
		}
	}
	if taken {
		return models.User{}, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	query, args, err := sq.Insert("users").Columns(userColumns...).
		Values(user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt).
		ToSql()
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return models.User{}, err
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// UpdatePassword verifies the current password, then hashes and sets a new password for a user.
func (s *UserService) UpdatePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	user, err := s.getUserWhere(ctx, sq.Eq{"username": username})
	if err != nil {
		return err
	}

	// Check if the current password is correct
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	query, args, err := sq.Update("users").Set("password_hash", string(hashedPassword)).Where(sq.Eq{"id": user.ID}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// AuthenticateUser verifies a user's credentials. The username may also be the account email.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.getUserWhere(ctx, sq.Or{sq.Eq{"username": username}, sq.Eq{"email": username}})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// ResolveCaller returns the identity carried by ctx after confirming the account
// still exists. Requests without claims, or for deleted accounts, fail with
// auth.ErrUnauthenticated.
func (s *UserService) ResolveCaller(ctx context.Context) (auth.Identity, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return "", err
	}

	user, err := s.GetUserByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", auth.ErrUnauthenticated
		}
		return "", fmt.Errorf("resolve caller: %w", err)
	}
	return auth.Identity(user.Username), nil
}
