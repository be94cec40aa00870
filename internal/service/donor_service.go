package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/integration/ghl"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken токен не прошел проверку или истек.
	ErrInvalidToken = errors.New("invalid token")
)

// DonorService управляет регистрацией и профилями жертвователей.
type DonorService interface {
	// Register регистрирует нового жертвователя (неподтвержденного) и
	// возвращает токен подтверждения email.
	Register(ctx context.Context, req domain.DonorRequest) (domain.Donor, string, error)

	// Login проверяет пароль и возвращает JWT доступа.
	Login(ctx context.Context, email, password string) (string, error)

	// Verify подтверждает email жертвователя по токену.
	Verify(ctx context.Context, token string) error

	// GetDonor возвращает жертвователя по ID.
	GetDonor(ctx context.Context, id uuid.UUID) (domain.Donor, error)

	// UpdateDonor обновляет профиль жертвователя.
	UpdateDonor(ctx context.Context, id uuid.UUID, req domain.DonorUpdateRequest) (domain.Donor, error)
}

type donorService struct {
	donors    repository.DonorRepository
	ghlClient *ghl.Client // может быть nil, если CRM не сконфигурирована
	jwtSecret string
	log       *logger.Logger
}

// NewDonorService создает новый сервис жертвователей.
func NewDonorService(donors repository.DonorRepository, ghlClient *ghl.Client, jwtSecret string, log *logger.Logger) DonorService {
	return &donorService{
		donors:    donors,
		ghlClient: ghlClient,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// Register регистрирует нового жертвователя.
func (s *donorService) Register(ctx context.Context, req domain.DonorRequest) (domain.Donor, string, error) {
	organizationID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return domain.Donor{}, "", fmt.Errorf("invalid organization ID: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Donor{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	donor := domain.Donor{
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   string(passwordHash),
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		PostalCode:     req.PostalCode,
		Verified:       false,
		OrganizationID: organizationID,
	}

	saved, err := s.donors.Create(ctx, donor)
	if err != nil {
		return domain.Donor{}, "", fmt.Errorf("failed to create donor: %w", err)
	}

	// Синхронизация с CRM best-effort: регистрация не должна падать из-за
	// недоступности внешней системы.
	s.syncContact(ctx, saved)

	token, err := s.issueToken(saved.ID, "verify", 24*time.Hour)
	if err != nil {
		return domain.Donor{}, "", fmt.Errorf("failed to issue verification token: %w", err)
	}

	s.log.Infow("Donor registered", "donorID", saved.ID, "email", saved.Email)
	return saved, token, nil
}

// Login проверяет пароль и возвращает JWT доступа.
func (s *donorService) Login(ctx context.Context, email, password string) (string, error) {
	donor, err := s.donors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up donor: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(donor.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.issueToken(donor.ID, "access", 24*time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return token, nil
}

// Verify подтверждает email жертвователя по токену.
func (s *donorService) Verify(ctx context.Context, token string) error {
	donorID, scope, err := s.parseToken(token)
	if err != nil {
		return ErrInvalidToken
	}
	if scope != "verify" {
		return ErrInvalidToken
	}

	if err := s.donors.SetVerified(ctx, donorID); err != nil {
		return fmt.Errorf("failed to mark donor verified: %w", err)
	}

	s.log.Infow("Donor verified", "donorID", donorID)
	return nil
}

// GetDonor возвращает жертвователя по ID.
func (s *donorService) GetDonor(ctx context.Context, id uuid.UUID) (domain.Donor, error) {
	return s.donors.GetByID(ctx, id)
}

// UpdateDonor обновляет профиль жертвователя.
func (s *donorService) UpdateDonor(ctx context.Context, id uuid.UUID, req domain.DonorUpdateRequest) (domain.Donor, error) {
	donor, err := s.donors.GetByID(ctx, id)
	if err != nil {
		return domain.Donor{}, fmt.Errorf("failed to look up donor: %w", err)
	}

	if req.Name != "" {
		donor.Name = req.Name
	}
	if req.Phone != "" {
		donor.Phone = req.Phone
	}
	if req.Address != "" {
		donor.Address = req.Address
	}
	if req.City != "" {
		donor.City = req.City
	}
	if req.PostalCode != "" {
		donor.PostalCode = req.PostalCode
	}

	updated, err := s.donors.Update(ctx, donor)
	if err != nil {
		return domain.Donor{}, fmt.Errorf("failed to update donor: %w", err)
	}

	s.syncContact(ctx, updated)
	return updated, nil
}

// syncContact отправляет контакт жертвователя в CRM. Best-effort.
func (s *donorService) syncContact(ctx context.Context, donor domain.Donor) {
	if s.ghlClient == nil {
		return
	}

	contactID, err := s.ghlClient.UpsertContact(ctx, donor, donor.OrganizationID.String())
	if err != nil {
		s.log.Warnw("Failed to sync donor contact to CRM", "donorID", donor.ID, "error", err)
		return
	}

	if contactID != "" && contactID != donor.GHLContactID {
		donor.GHLContactID = contactID
		if _, err := s.donors.Update(ctx, donor); err != nil {
			s.log.Warnw("Failed to persist CRM contact ID", "donorID", donor.ID, "error", err)
		}
	}
}

func (s *donorService) issueToken(donorID uuid.UUID, scope string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   donorID.String(),
		"scope": scope,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *donorService) parseToken(tokenString string) (uuid.UUID, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	scope, _ := claims["scope"].(string)

	donorID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	return donorID, scope, nil
}
