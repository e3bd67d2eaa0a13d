package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/priorityhuddle/huddle/internal/auth"
	"github.com/priorityhuddle/huddle/internal/ident"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrUsernameTaken indicates another account already uses the username.
	ErrUsernameTaken = errors.New("users: username already taken")
	// ErrInvalidCredentials indicates the email/password pair did not match.
	// Deliberately generic so login failures do not reveal which part was wrong.
	ErrInvalidCredentials = errors.New("users: invalid email or password")
	// ErrNotFound indicates the referenced user does not exist.
	ErrNotFound = errors.New("users: user not found")
)

const (
	opServiceNew = "users.service.new"
	opRegister   = "users.register"
	opLogin      = "users.login"
	opGet        = "users.get"
	opSearch     = "users.search"
)

// ServiceError carries an operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ServiceConfig describes the dependencies for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider ident.Provider
	Logger     *zap.Logger
}

// Service manages registration, login, and user lookup.
type Service struct {
	db         *gorm.DB
	idProvider ident.Provider
	logger     *zap.Logger
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, logger: logger}, nil
}

// Register creates a new account. Email and username must both be unused.
func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return User{}, newServiceError(opRegister, "missing_fields", errors.New("username and email are required"))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return User{}, newServiceError(opRegister, "email_lookup_failed", err)
	}
	if count > 0 {
		return User{}, newServiceError(opRegister, "email_taken", ErrEmailTaken)
	}
	if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return User{}, newServiceError(opRegister, "username_lookup_failed", err)
	}
	if count > 0 {
		return User{}, newServiceError(opRegister, "username_taken", ErrUsernameTaken)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, newServiceError(opRegister, "weak_password", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return User{}, newServiceError(opRegister, "id_generation_failed", err)
	}

	user := User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logger.Error("user insert failed", zap.String("operation", opRegister), zap.Error(err))
		return User{}, newServiceError(opRegister, "insert_failed", err)
	}
	return user, nil
}

// Login authenticates an email/password pair and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, newServiceError(opLogin, "invalid_credentials", ErrInvalidCredentials)
	}
	if err != nil {
		return User{}, newServiceError(opLogin, "lookup_failed", err)
	}
	if !auth.ComparePassword(user.PasswordHash, password) {
		return User{}, newServiceError(opLogin, "invalid_credentials", ErrInvalidCredentials)
	}
	return user, nil
}

// GetByID loads a single account.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, newServiceError(opGet, "not_found", ErrNotFound)
	}
	if err != nil {
		return User{}, newServiceError(opGet, "lookup_failed", err)
	}
	return user, nil
}

// GetByUsername resolves the invite handle used when adding collaborators.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, newServiceError(opGet, "not_found", ErrNotFound)
	}
	if err != nil {
		return User{}, newServiceError(opGet, "lookup_failed", err)
	}
	return user, nil
}

// Search finds accounts whose username or email contains the query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var found []User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&found).Error
	if err != nil {
		return nil, newServiceError(opSearch, "query_failed", err)
	}
	return found, nil
}
