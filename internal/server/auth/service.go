package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/passhash"
	"github.com/obralink/obralink/internal/server/models"
	"github.com/obralink/obralink/internal/server/repositories/entities"
	"github.com/obralink/obralink/internal/server/repositories/users"
)

// Result is what both register and login hand back to the transport layer.
type Result struct {
	UserID      string
	CompanyID   string
	Role        string
	AccessToken string
}

type Service struct {
	users                       users.Repository
	entities                    entities.Repository
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewService(usersRepo users.Repository, entitiesRepo entities.Repository, secretKey string, validity time.Duration) *Service {
	return &Service{
		users:                       usersRepo,
		entities:                    entitiesRepo,
		jwtSecret:                   []byte(secretKey),
		accessTokenValidityDuration: validity,
	}
}

// Register creates a tenant user with a fresh company and seeds the
// company's account row so the first hydration has something to fetch.
func (s *Service) Register(ctx context.Context, username, password, companyName string) (*Result, error) {
	hash, err := passhash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleTenant,
		CompanyID:    uuid.NewString(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// The account entity shares its id with the company.
	account := entity.Entity{
		ID:        user.CompanyID,
		CompanyID: user.CompanyID,
		Fields:    entity.Body{"companyName": companyName},
	}
	if _, err := s.entities.Upsert(ctx, entity.Accounts, account); err != nil {
		return nil, fmt.Errorf("failed to seed account: %w", err)
	}

	return s.result(user)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, err
	}

	ok, err := passhash.VerifyPassword(user.PasswordHash, password)
	if err != nil || !ok {
		return nil, common.ErrUnauthorized
	}

	return s.result(user)
}

func (s *Service) result(user *models.User) (*Result, error) {
	token, err := GenerateToken(user.ID, user.CompanyID, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Result{
		UserID:      user.ID,
		CompanyID:   user.CompanyID,
		Role:        user.Role,
		AccessToken: token,
	}, nil
}
