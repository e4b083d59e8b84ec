package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sokoni-app/sokoni_wallet/internal/ledger"
)

// Service manages identity lifecycle. Registering a user provisions their
// wallet, so every established identity owns exactly one wallet.
type Service struct {
	repo    Repository
	wallets ledger.Store
}

// NewService creates a new identity service.
func NewService(repo Repository, wallets ledger.Store) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// RegisterInput captures data required to register a marketplace member.
type RegisterInput struct {
	Credentials
	Role string
}

// Register creates a new user with a hashed PIN and provisions their wallet.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if len(input.PIN) < 4 {
		return User{}, errors.New("PIN must be at least 4 digits")
	}
	role := input.Role
	if role == "" {
		role = RoleBuyer
	}
	if role != RoleBuyer && role != RoleSeller {
		return User{}, errors.New("role must be buyer or seller")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        uuid.New().String(),
		Phone:     input.Phone,
		Role:      role,
		PINHash:   hash,
		DeviceID:  input.DeviceID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	if _, err := s.wallets.EnsureWallet(ctx, user.ID); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies credentials and device binding.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByPhone(ctx, creds.Phone)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(creds.PIN)); err != nil {
		return User{}, errors.New("invalid PIN")
	}

	if user.DeviceID == "" {
		if creds.DeviceID == "" {
			return User{}, errors.New("device binding required")
		}
		if err := s.repo.UpdateDevice(ctx, user.ID, creds.DeviceID); err != nil {
			return User{}, err
		}
		user.DeviceID = creds.DeviceID
	} else if creds.DeviceID != "" && user.DeviceID != creds.DeviceID {
		return User{}, errors.New("device mismatch")
	}

	return user, nil
}
