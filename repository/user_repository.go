package repository

import (
	"database/sql"
	"fmt"
	"time"

	"samplecrate/db"
	"samplecrate/model"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(user *model.User) (int64, error)
	GetUserByID(id int64) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	DB *sql.DB
}

// NewMySQLUserRepository creates a new instance of mysqlUserRepository.
func NewMySQLUserRepository() UserRepository {
	return &mysqlUserRepository{DB: db.DB}
}

// CreateUser adds a new user to the database.
func (r *mysqlUserRepository) CreateUser(user *model.User) (int64, error) {
	query := `INSERT INTO users (username, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	res, err := r.DB.Exec(query, user.Username, user.Email, user.PasswordHash, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateUser: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateUser: %w", err)
	}
	return id, nil
}

func (r *mysqlUserRepository) getUser(where string, arg any) (*model.User, error) {
	query := `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE ` + where
	row := r.DB.QueryRow(query, arg)

	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by id.
func (r *mysqlUserRepository) GetUserByID(id int64) (*model.User, error) {
	return r.getUser("id = ?", id)
}

// GetUserByUsername retrieves a user by username.
func (r *mysqlUserRepository) GetUserByUsername(username string) (*model.User, error) {
	return r.getUser("username = ?", username)
}

// GetUserByEmail retrieves a user by email.
func (r *mysqlUserRepository) GetUserByEmail(email string) (*model.User, error) {
	return r.getUser("email = ?", email)
}
