package fcm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_NoCredentialsIsDisabled(t *testing.T) {
	c, err := NewClient(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, c.IsEnabled())

	err = c.SendMulticast(context.Background(), []string{"token"}, "t", "b", nil)
	assert.Error(t, err)
}

func TestIsEnabled_NilClient(t *testing.T) {
	var c *Client
	assert.False(t, c.IsEnabled())
}
