package service

import (
	"context"
	"testing"
	"time"

	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAuthService(t *testing.T) (*AuthServiceImpl, *mocks.MockAccountRepository, *mocks.MockHashService, *mocks.MockTokenService, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	hashSvc := mocks.NewMockHashService(ctrl)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	svc := NewAuthService(accountRepo, hashSvc, tokenSvc)
	return svc, accountRepo, hashSvc, tokenSvc, ctrl
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, accountRepo, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	accountRepo.EXPECT().GetByAddress(ctx, payerAddr).Return(nil, nil)
	hashSvc.EXPECT().Hash("s3cret-passphrase").Return("$argon2id$hashed", nil)
	accountRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, account *domain.Account) error {
			assert.Equal(t, payerAddr, account.Address)
			assert.Equal(t, "$argon2id$hashed", account.SecretHash)
			assert.False(t, account.Whitelisted, "new accounts start off the whitelist")
			assert.Zero(t, account.Balance)
			return nil
		})

	account, err := svc.Register(ctx, payerAddr, "s3cret-passphrase")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, payerAddr, account.Address)
}

func TestAuthService_Register_AddressTaken(t *testing.T) {
	svc, accountRepo, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	accountRepo.EXPECT().GetByAddress(ctx, payerAddr).Return(&domain.Account{Address: payerAddr}, nil)

	account, err := svc.Register(ctx, payerAddr, "whatever")
	assert.Nil(t, account)
	assertAppCode(t, err, "AUTH_002")
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, accountRepo, hashSvc, tokenSvc, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	expiry := time.Now().Add(24 * time.Hour)

	accountRepo.EXPECT().GetByAddress(ctx, payerAddr).Return(&domain.Account{
		Address:    payerAddr,
		SecretHash: "$argon2id$hashed",
	}, nil)
	hashSvc.EXPECT().Verify("correct-secret", "$argon2id$hashed").Return(true, nil)
	tokenSvc.EXPECT().Generate(payerAddr).Return("jwt_token_here", expiry, nil)

	token, expiresAt, err := svc.Login(ctx, payerAddr, "correct-secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt_token_here", token)
	assert.Equal(t, expiry, expiresAt)
}

func TestAuthService_Login_UnknownAddress(t *testing.T) {
	svc, accountRepo, _, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	accountRepo.EXPECT().GetByAddress(ctx, "0xnobody").Return(nil, nil)

	_, _, err := svc.Login(ctx, "0xnobody", "secret")
	assertAppCode(t, err, "AUTH_001")
}

func TestAuthService_Login_WrongSecret(t *testing.T) {
	svc, accountRepo, hashSvc, _, ctrl := setupAuthService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	accountRepo.EXPECT().GetByAddress(ctx, payerAddr).Return(&domain.Account{
		Address:    payerAddr,
		SecretHash: "$argon2id$hashed",
	}, nil)
	hashSvc.EXPECT().Verify("wrong-secret", "$argon2id$hashed").Return(false, nil)

	_, _, err := svc.Login(ctx, payerAddr, "wrong-secret")
	assertAppCode(t, err, "AUTH_001")
}
