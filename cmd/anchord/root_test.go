package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"anchord/internal/apperr"
	"anchord/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "anchord")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	cfg.Store.Driver = config.StoreMemory
	repo, err := openStore(ctx, cfg, true)
	require.NoError(t, err)
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())

	cfg.Store.Driver = config.StoreSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "anchord.db")
	repo, err = openStore(ctx, cfg, true)
	require.NoError(t, err)
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())

	cfg.Store.Driver = "redis"
	_, err = openStore(ctx, cfg, true)
	assert.Error(t, err)
}

func TestImportWalletRejectsBadMnemonic(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.Mnemonic = "not a recovery phrase"

	_, err := importWallet(cfg)
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeWalletIncorrectImportString, code)
}

func TestAddressCommand(t *testing.T) {
	t.Setenv("ANCHORD_WALLET_MNEMONIC", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	t.Setenv("ANCHORD_STORE_DRIVER", "memory")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"address"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "addr_test1")
}
