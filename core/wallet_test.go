package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	addr := testAddress(t)

	wallet, err := NewWallet(addr)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, wallet.ID())
	assert.Equal(t, addr, wallet.Address())
	assert.Equal(t, wallet.CreatedAt(), wallet.LastActive())

	_, err = NewWallet(Address{})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestRestoreWalletFutureCreatedAt(t *testing.T) {
	addr := testAddress(t)
	future := time.Now().UTC().Add(time.Hour)

	_, err := RestoreWallet(uuid.New(), addr, future, future)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestWalletPing(t *testing.T) {
	createdAt := time.Now().UTC().Add(-time.Hour)
	addr := testAddress(t)
	wallet, err := RestoreWallet(uuid.New(), addr, createdAt, createdAt)
	require.NoError(t, err)

	pinged := wallet.Ping()

	// Only last-activity moves; everything else is preserved exactly.
	assert.Equal(t, wallet.ID(), pinged.ID())
	assert.Equal(t, wallet.Address(), pinged.Address())
	assert.True(t, wallet.CreatedAt().Equal(pinged.CreatedAt()))
	assert.True(t, pinged.LastActive().After(wallet.LastActive()))
}

func TestWalletBytes(t *testing.T) {
	addr := testAddress(t)
	wallet, err := NewWallet(addr)
	require.NoError(t, err)

	assert.Equal(t, addr.Bytes(), wallet.Bytes())
	assert.Len(t, wallet.Bytes(), AddressLength)
}
