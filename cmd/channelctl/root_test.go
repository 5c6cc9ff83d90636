package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-backend/internal/domain"
)

func runCompute(t *testing.T, stdin []byte, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	cmd := computeCmd()
	root := &cobra.Command{Use: "channelctl"}
	root.AddCommand(cmd)

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetIn(bytes.NewReader(stdin))
	root.SetArgs(append([]string{"compute"}, args...))
	return out, root.ExecuteContext(context.Background())
}

func testBars(n int) []byte {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 100.0
		bars[i] = domain.Bar{Time: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	raw, _ := json.Marshal(bars)
	return raw
}

func TestComputeCommand_Stdin(t *testing.T) {
	out, err := runCompute(t, testBars(21), "--regression", "linear")
	require.NoError(t, err)

	var bands domain.ChannelBands
	require.NoError(t, json.Unmarshal(out.Bytes(), &bands))
	require.Len(t, bands.Middle, 21)
	for i := range bands.Middle {
		assert.InDelta(t, 100.0, bands.Upper[i].Value, 1e-9)
		assert.InDelta(t, 100.0, bands.Lower[i].Value, 1e-9)
	}
}

func TestComputeCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.json")
	require.NoError(t, os.WriteFile(path, testBars(10), 0o600))

	out, err := runCompute(t, nil, "--file", path, "--full-range=false", "--length", "4", "--expansion-bars", "1")
	require.NoError(t, err)

	var bands domain.ChannelBands
	require.NoError(t, json.Unmarshal(out.Bytes(), &bands))
	require.Len(t, bands.Middle, 5)
	assert.Equal(t, 6, bands.Middle[0].Index)
}

func TestComputeCommand_InvalidConfig(t *testing.T) {
	_, err := runCompute(t, testBars(5), "--length", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = runCompute(t, testBars(5), "--regression", "cubic")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
