package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRPCClient(t *testing.T) {
	t.Run("selects one of the configured endpoints", func(t *testing.T) {
		endpoints := []string{
			"https://api.mainnet-beta.solana.com",
			"https://mainnet.helius-rpc.com/?api-key=abc",
			"https://rpc.ankr.com/solana",
		}

		client, err := NewRPCClient(endpoints, nil, nil, nil)
		require.NoError(t, err)
		assert.Contains(t, endpoints, client.Endpoint())
	})

	t.Run("single endpoint", func(t *testing.T) {
		client, err := NewRPCClient([]string{"https://api.devnet.solana.com"}, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.devnet.solana.com", client.Endpoint())
	})

	t.Run("error on empty slice", func(t *testing.T) {
		_, err := NewRPCClient([]string{}, nil, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no RPC endpoints configured")
	})

	t.Run("error on nil slice", func(t *testing.T) {
		_, err := NewRPCClient(nil, nil, nil, nil)
		assert.Error(t, err)
	})
}
