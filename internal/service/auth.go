package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, changes *models.User, columns ...string) error
}

type AuthService struct {
	repo      UserRepository
	owners    *OwnerDirectory
	jwtSecret []byte // Stored in env (JWT_SECRET)
	jwtExpiry time.Duration
	log       *slog.Logger
}

func NewAuthService(repo UserRepository, owners *OwnerDirectory, secret string, expiryHours int, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:      repo,
		owners:    owners,
		jwtSecret: []byte(secret),
		jwtExpiry: time.Duration(expiryHours) * time.Hour,
		log:       log,
	}
}

type RegisterParams struct {
	Email        string
	Password     string
	Name         string
	BusinessName string
}

// Creates a new owner account on the free plan
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(params.Password) < minPasswordLength {
		return nil, invalid("password", "must be at least %d characters", minPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         strings.TrimSpace(params.Name),
		BusinessName: strings.TrimSpace(params.BusinessName),
		Plan:         "free",
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user_registered", "user_id", user.ID.String())
	return user, nil
}

// Authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	if len(s.jwtSecret) == 0 {
		return "", ErrNoSigningKey
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"plan":    user.Plan,
		"exp":     now.Add(s.jwtExpiry).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// Validates a JWT token and returns the user id it was issued for
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	// an empty HMAC key would accept tokens anyone can sign
	if len(s.jwtSecret) == 0 {
		return uuid.Nil, ErrNoSigningKey
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid token claims")
	}

	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid token subject")
	}

	return userID, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// ProfileParams carries profile edits; nil fields are left unchanged.
type ProfileParams struct {
	Name         *string
	BusinessName *string
}

func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, params ProfileParams) (*models.User, error) {
	changes := &models.User{}
	var columns []string

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		changes.Name = name
		columns = append(columns, "name")
	}
	if params.BusinessName != nil {
		changes.BusinessName = strings.TrimSpace(*params.BusinessName)
		columns = append(columns, "business_name")
	}
	if len(columns) == 0 {
		return nil, invalid("body", "no fields to update")
	}

	if err := s.repo.Update(ctx, id, changes, columns...); err != nil {
		return nil, err
	}
	if s.owners != nil {
		s.owners.Forget(id)
	}

	return s.GetUserByID(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}
