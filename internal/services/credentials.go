package services

import (
	"context"

	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/secrets"
	"github.com/platewise/platewise-backend/internal/types"
)

// CredentialService stores provider API secrets sealed with the credential
// box; plaintext exists only in memory on either side of a call.
type CredentialService interface {
	SetCredential(ctx context.Context, providerKey, secret, label string) error
	GetSecret(ctx context.Context, providerKey string) (string, bool, error)
}

type credentialService struct {
	repo repos.CredentialRepo
	box  *secrets.Box
	log  *logger.Logger
}

func NewCredentialService(repo repos.CredentialRepo, box *secrets.Box, baseLog *logger.Logger) CredentialService {
	return &credentialService{
		repo: repo,
		box:  box,
		log:  baseLog.With("service", "CredentialService"),
	}
}

func (s *credentialService) SetCredential(ctx context.Context, providerKey, secret, label string) error {
	sealed, err := s.box.EncryptString(secret)
	if err != nil {
		return err
	}
	row := &types.ProviderCredential{
		ProviderKey:     providerKey,
		Label:           label,
		EncryptedSecret: sealed,
	}
	if err := s.repo.Upsert(ctx, nil, row); err != nil {
		return err
	}
	s.log.Info("provider credential stored", "provider_key", providerKey)
	return nil
}

func (s *credentialService) GetSecret(ctx context.Context, providerKey string) (string, bool, error) {
	row, err := s.repo.GetByProvider(ctx, nil, providerKey)
	if err != nil {
		return "", false, err
	}
	if row == nil {
		return "", false, nil
	}
	plain, err := s.box.DecryptString(row.EncryptedSecret)
	if err != nil {
		return "", false, err
	}
	return plain, true, nil
}
