package mcp

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"promptbuddies/tools"
)

const fixtureCSV = `Operation Date,Operation Description,Account,Category,Amount,Amount Grosze,Balance,Balance Grosze
2025-05-18,Obiad,ACCT 123,Jedzenie,"-50,00",00,"1 000,00",00
2025-05-17,Bilet,ACCT 123,Transport,"-20,00",00,"1 050,00",00
`

func dialTestServer(t *testing.T) (*Client, *tools.Backend) {
	t.Helper()
	ds, err := tools.ReadDataset(strings.NewReader(fixtureCSV), 0)
	require.NoError(t, err)

	backend := tools.NewBackend(tools.Options{
		Rand:   rand.New(rand.NewPCG(3, 4)),
		Logger: zaptest.NewLogger(t),
	}).WithDataset(ds)

	c, err := DialInProcess(context.Background(), NewServer(backend, "test", zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, backend
}

func TestServerListsBackendTools(t *testing.T) {
	c, backend := dialTestServer(t)

	var want, got []string
	for _, s := range backend.Schemas() {
		want = append(want, s.Name)
	}
	for _, s := range c.Schemas() {
		got = append(got, s.Name)
	}
	assert.ElementsMatch(t, want, got)
}

func TestClientCallMatchesLocalCall(t *testing.T) {
	c, backend := dialTestServer(t)
	ctx := context.Background()
	args := map[string]any{"account_name": "ACCT"}

	remote := c.Call(ctx, tools.ToolSummarizeExpenses, args)
	local := backend.Call(ctx, tools.ToolSummarizeExpenses, args)

	require.False(t, remote.Failed(), remote.Error)
	assert.Equal(t, local.JSON(), remote.JSON())
}

func TestClientCallError(t *testing.T) {
	c, _ := dialTestServer(t)

	res := c.Call(context.Background(), tools.ToolConversionFromPLN, map[string]any{})
	require.True(t, res.Failed())
	assert.Equal(t, tools.ToolConversionFromPLN, res.ToolName)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.JSON()), &payload))
	assert.Contains(t, payload, "error")
}

func TestDecodeResultPlainText(t *testing.T) {
	res := decodeResult("echo", mcptypes.NewToolResultText("hello"))
	assert.False(t, res.Failed())
	assert.Equal(t, "hello", res.Result)

	res = decodeResult("echo", mcptypes.NewToolResultError("boom"))
	assert.True(t, res.Failed())
	assert.Equal(t, "boom", res.Error)
}
