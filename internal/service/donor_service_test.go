package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/internal/repository"
	"github.com/Dhoini/Donation-platform/pkg/logger"
)

func newDonorService(t *testing.T) (DonorService, *repository.InMemoryDonorRepository) {
	log := logger.New(logger.ERROR)
	donors := repository.NewInMemoryDonorRepository(log)
	return NewDonorService(donors, nil, "test-jwt-secret", log), donors
}

func donorRequest() domain.DonorRequest {
	return domain.DonorRequest{
		Name:           "Alex Donor",
		Email:          "alex@example.com",
		Password:       "correct horse battery",
		OrganizationID: uuid.NewString(),
	}
}

func TestRegister_CreatesUnverifiedDonor(t *testing.T) {
	svc, _ := newDonorService(t)
	ctx := context.Background()

	donor, token, err := svc.Register(ctx, donorRequest())
	require.NoError(t, err)

	assert.False(t, donor.Verified)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "correct horse battery", donor.PasswordHash)
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	svc, _ := newDonorService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, donorRequest())
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, donorRequest())
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestVerify_MarksDonorVerified(t *testing.T) {
	svc, donors := newDonorService(t)
	ctx := context.Background()

	donor, token, err := svc.Register(ctx, donorRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, token))

	verified, err := donors.GetByID(ctx, donor.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
}

func TestVerify_GarbageTokenRejected(t *testing.T) {
	svc, _ := newDonorService(t)

	err := svc.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_AccessTokenNotAcceptedForVerification(t *testing.T) {
	svc, _ := newDonorService(t)
	ctx := context.Background()

	req := donorRequest()
	_, _, err := svc.Register(ctx, req)
	require.NoError(t, err)

	accessToken, err := svc.Login(ctx, req.Email, req.Password)
	require.NoError(t, err)

	// Scopes are distinct: a login token must not verify an email
	assert.ErrorIs(t, svc.Verify(ctx, accessToken), ErrInvalidToken)
}

func TestLogin_ValidCredentials(t *testing.T) {
	svc, _ := newDonorService(t)
	ctx := context.Background()

	req := donorRequest()
	_, _, err := svc.Register(ctx, req)
	require.NoError(t, err)

	token, err := svc.Login(ctx, req.Email, req.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLogin_WrongPasswordRejected(t *testing.T) {
	svc, _ := newDonorService(t)
	ctx := context.Background()

	req := donorRequest()
	_, _, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Login(ctx, req.Email, "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmailRejected(t *testing.T) {
	svc, _ := newDonorService(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateDonor_PartialUpdate(t *testing.T) {
	svc, _ := newDonorService(t)
	ctx := context.Background()

	donor, _, err := svc.Register(ctx, donorRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateDonor(ctx, donor.ID, domain.DonorUpdateRequest{City: "Lisbon"})
	require.NoError(t, err)

	assert.Equal(t, "Lisbon", updated.City)
	assert.Equal(t, donor.Name, updated.Name)
}
