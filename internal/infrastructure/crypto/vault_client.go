package crypto

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/pkg/errors"
)

// VaultKeySource reads the signing key from a KV v2 secret.
type VaultKeySource struct {
	client    *vault.Client
	mountPath string
	keyPath   string
	keyField  string
}

// NewVaultKeySource creates and configures a Vault client.
func NewVaultKeySource(cfg *config.VaultConfig) (*VaultKeySource, error) {
	vaultConfig := vault.DefaultConfig()
	if cfg.Address != "" {
		vaultConfig.Address = cfg.Address
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.ErrInvalidConfig.WithMessage("failed to create vault client").WithCause(err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	return &VaultKeySource{
		client:    client,
		mountPath: cfg.MountPath,
		keyPath:   cfg.KeyPath,
		keyField:  cfg.KeyField,
	}, nil
}

// FetchSigningKey returns the base64 secret stored under keyField.
func (v *VaultKeySource) FetchSigningKey(ctx context.Context) (string, error) {
	secret, err := v.client.KVv2(v.mountPath).Get(ctx, v.keyPath)
	if err != nil {
		return "", errors.ErrServiceUnavailable.WithMessage("vault read failed").WithCause(err)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.ErrNotFound.WithMessage(fmt.Sprintf("vault secret %s/%s is empty", v.mountPath, v.keyPath))
	}
	encoded, ok := secret.Data[v.keyField].(string)
	if !ok || encoded == "" {
		return "", errors.ErrNotFound.WithMessage(fmt.Sprintf("vault secret has no %q field", v.keyField))
	}
	return encoded, nil
}
