package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/httpclient"
	"github.com/iho/godeposit/internal/infrastructure/jsonrpc"
)

const (
	watched = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	sender  = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers each method with the queued bodies in order, repeating the last one.
type fakeNode struct {
	mu        sync.Mutex
	responses map[string][]string
	requests  []rpcRequest
}

func (n *fakeNode) on(method string, bodies ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses[method] = append(n.responses[method], bodies...)
}

func (n *fakeNode) calls(method string) []rpcRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []rpcRequest
	for _, r := range n.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.requests = append(n.requests, req)
	queue := n.responses[req.Method]
	body := `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"}}`
	if len(queue) > 0 {
		body = queue[0]
		if len(queue) > 1 {
			n.responses[req.Method] = queue[1:]
		}
	}
	n.mu.Unlock()

	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T) (*Client, *fakeNode) {
	t.Helper()
	node := &fakeNode{responses: make(map[string][]string)}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	conn := jsonrpc.NewClient(httpclient.New(httpclient.WithRetryMax(0)), srv.URL)
	client := NewClient(conn, Config{RetryAttempts: 3, RetryDelay: time.Millisecond}, nil, zerolog.Nop())
	return client, node
}

func result(v string) string {
	return `{"jsonrpc":"2.0","id":"1","result":` + v + `}`
}

func TestBalance(t *testing.T) {
	t.Run("native", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getBalance", result(`{"context":{"slot":1},"value":1500000000}`))

		got, err := c.Balance(t.Context(), &domain.WatchedAccount{Address: watched, Asset: domain.NativeAsset()})
		require.NoError(t, err)
		assert.Equal(t, uint64(1_500_000_000), got)

		req := node.calls("getBalance")[0]
		assert.JSONEq(t, `"`+watched+`"`, string(req.Params[0]))
		assert.JSONEq(t, `{"commitment":"confirmed"}`, string(req.Params[1]))
	})

	usdt := domain.Asset{ID: domain.AssetIDUSDT, Symbol: "USDT", Decimals: 6, Mint: domain.USDTMint}

	t.Run("token account", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTokenAccountBalance", result(`{"context":{"slot":1},"value":{"amount":"2500000","decimals":6,"uiAmountString":"2.5"}}`))

		got, err := c.Balance(t.Context(), &domain.WatchedAccount{Address: watched, TokenAccount: "ata", Asset: usdt})
		require.NoError(t, err)
		assert.Equal(t, uint64(2_500_000), got)
	})

	t.Run("token accounts by owner are summed", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTokenAccountsByOwner", result(`{"context":{"slot":1},"value":[
			{"pubkey":"a1","account":{"data":{"parsed":{"info":{"mint":"`+domain.USDTMint+`","owner":"`+watched+`","tokenAmount":{"amount":"1000000","decimals":6}}}}}},
			{"pubkey":"a2","account":{"data":{"parsed":{"info":{"mint":"`+domain.USDTMint+`","owner":"`+watched+`","tokenAmount":{"amount":"500000","decimals":6}}}}}}
		]}`))

		got, err := c.Balance(t.Context(), &domain.WatchedAccount{Address: watched, Asset: usdt})
		require.NoError(t, err)
		assert.Equal(t, uint64(1_500_000), got)

		req := node.calls("getTokenAccountsByOwner")[0]
		assert.JSONEq(t, `{"mint":"`+domain.USDTMint+`"}`, string(req.Params[1]))
	})
}

func TestHistorySince(t *testing.T) {
	c, node := newTestClient(t)
	node.on("getSignaturesForAddress", result(`[
		{"signature":"sig-3","slot":30,"err":null,"blockTime":1700000030},
		{"signature":"sig-2","slot":20,"err":{"InstructionError":[0,"Custom"]},"blockTime":null}
	]`))

	entries, err := c.HistorySince(t.Context(), watched, "sig-1", "sig-4", 20)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "sig-3", entries[0].TxID)
	assert.Equal(t, uint64(30), entries[0].Slot)
	assert.False(t, entries[0].Failed)
	require.NotNil(t, entries[0].BlockTime)
	assert.Equal(t, int64(1700000030), entries[0].BlockTime.Unix())

	assert.True(t, entries[1].Failed)
	assert.Nil(t, entries[1].BlockTime)

	req := node.calls("getSignaturesForAddress")[0]
	assert.JSONEq(t, `{"limit":20,"commitment":"confirmed","until":"sig-1","before":"sig-4"}`, string(req.Params[1]))
}

func TestHistorySinceFromGenesis(t *testing.T) {
	c, node := newTestClient(t)
	node.on("getSignaturesForAddress", result(`[]`))

	entries, err := c.HistorySince(t.Context(), watched, "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	req := node.calls("getSignaturesForAddress")[0]
	assert.JSONEq(t, `{"limit":1000,"commitment":"confirmed"}`, string(req.Params[1]))
}

const nativeTransfer = `{
	"slot": 42,
	"blockTime": 1700000000,
	"transaction": {
		"signatures": ["sig-native"],
		"message": {"accountKeys": [
			{"pubkey":"` + sender + `","signer":true,"source":"transaction"},
			{"pubkey":"` + watched + `","signer":false,"source":"transaction"},
			{"pubkey":"11111111111111111111111111111111","signer":false,"source":"transaction"}
		]}
	},
	"meta": {
		"err": null,
		"preBalances": [5000000000, 1000000000, 1],
		"postBalances": [3999995000, 2000000000, 1],
		"preTokenBalances": [],
		"postTokenBalances": []
	}
}`

func TestTransaction(t *testing.T) {
	t.Run("native transfer feeds the extractor", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTransaction", result(nativeTransfer))

		tx, err := c.Transaction(t.Context(), "sig-native")
		require.NoError(t, err)
		assert.True(t, tx.HasMeta)
		assert.False(t, tx.Failed)
		assert.Equal(t, uint64(42), tx.Slot)
		assert.Equal(t, []string{sender, watched, "11111111111111111111111111111111"}, tx.AccountKeys)

		transfer, ok, err := domain.ExtractTransfer(tx, watched, domain.NativeAsset())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, uint64(1_000_000_000), transfer.Amount)
		assert.Equal(t, sender, transfer.Counterparty)

		req := node.calls("getTransaction")[0]
		assert.JSONEq(t, `{"encoding":"jsonParsed","commitment":"confirmed","maxSupportedTransactionVersion":0}`, string(req.Params[1]))
	})

	t.Run("token balances and failure flag", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTransaction", result(`{
			"slot": 7,
			"blockTime": null,
			"transaction": {"signatures":["sig-tok"],"message":{"accountKeys":[{"pubkey":"`+sender+`"},{"pubkey":"ata"}]}},
			"meta": {
				"err": {"InstructionError":[0,{"Custom":1}]},
				"preBalances": [10, 10],
				"postBalances": [5, 10],
				"preTokenBalances": [{"accountIndex":1,"mint":"`+domain.USDTMint+`","owner":"`+watched+`","uiTokenAmount":{"amount":"100","decimals":6}}],
				"postTokenBalances": [{"accountIndex":1,"mint":"`+domain.USDTMint+`","owner":"`+watched+`","uiTokenAmount":{"amount":"250","decimals":6}}]
			}
		}`))

		tx, err := c.Transaction(t.Context(), "sig-tok")
		require.NoError(t, err)
		assert.True(t, tx.Failed)
		require.Len(t, tx.PostTokenBalances, 1)
		assert.Equal(t, uint64(250), tx.PostTokenBalances[0].Amount)
		assert.Equal(t, watched, tx.PostTokenBalances[0].Owner)
		assert.Nil(t, tx.BlockTime)
	})

	t.Run("missing meta", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTransaction", result(`{"slot":1,"transaction":{"signatures":["x"],"message":{"accountKeys":[]}},"meta":null}`))

		tx, err := c.Transaction(t.Context(), "x")
		require.NoError(t, err)
		assert.False(t, tx.HasMeta)
	})

	t.Run("null result is not found", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTransaction", result(`null`))

		_, err := c.Transaction(t.Context(), "gone")
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("bad token amount is malformed", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTransaction", result(`{"slot":1,"transaction":{"message":{"accountKeys":[]}},"meta":{"err":null,"preBalances":[],"postBalances":[],
			"preTokenBalances":[{"accountIndex":0,"mint":"m","owner":"o","uiTokenAmount":{"amount":"1.5"}}],"postTokenBalances":[]}}`))

		_, err := c.Transaction(t.Context(), "bad")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedTransaction)
		assert.False(t, domain.IsFatal(err))
	})

	t.Run("undecodable result is malformed", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getTransaction", result(`{"slot":"not-a-number"}`))

		_, err := c.Transaction(t.Context(), "odd")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedTransaction)
		assert.False(t, domain.IsFatal(err))
	})
}

func TestCallRetriesTransientProviderErrors(t *testing.T) {
	c, node := newTestClient(t)
	node.on("getBalance",
		`{"jsonrpc":"2.0","error":{"code":-32005,"message":"Node is behind by 120 slots"}}`,
		result(`{"context":{"slot":1},"value":7}`),
	)

	got, err := c.Balance(t.Context(), &domain.WatchedAccount{Address: watched, Asset: domain.NativeAsset()})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got)
	assert.Len(t, node.calls("getBalance"), 2)
}

func TestCallClassifiesFailures(t *testing.T) {
	t.Run("non-retryable provider error is transient and not retried", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getBalance", `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Invalid param"}}`)

		_, err := c.Balance(t.Context(), &domain.WatchedAccount{Address: "bad", Asset: domain.NativeAsset()})
		require.Error(t, err)
		assert.True(t, domain.IsTransient(err))
		assert.ErrorIs(t, err, jsonrpc.ErrProviderReturnedError)
		assert.Len(t, node.calls("getBalance"), 1)
	})

	t.Run("undecodable result is fatal", func(t *testing.T) {
		c, node := newTestClient(t)
		node.on("getSignaturesForAddress", result(`{"unexpected":"object"}`))

		_, err := c.HistorySince(t.Context(), watched, "", "", 10)
		require.Error(t, err)
		assert.True(t, domain.IsFatal(err))
	})

	t.Run("cancelled context is transient", func(t *testing.T) {
		c, _ := newTestClient(t)
		ctx, cancel := contextWithCancel(t)
		cancel()

		_, err := c.HistorySince(ctx, watched, "", "", 10)
		require.Error(t, err)
		assert.True(t, domain.IsTransient(err))
	})
}

type recordingObserver struct {
	mu      sync.Mutex
	methods []string
}

func (o *recordingObserver) ChainCall(method string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.methods = append(o.methods, method)
}

func TestObserverSeesEveryAttempt(t *testing.T) {
	node := &fakeNode{responses: make(map[string][]string)}
	srv := httptest.NewServer(node)
	defer srv.Close()
	node.on("getBalance",
		`{"jsonrpc":"2.0","error":{"code":429,"message":"Too many requests"}}`,
		result(`{"value":1}`),
	)

	obs := &recordingObserver{}
	c := NewClient(jsonrpc.NewClient(httpclient.New(httpclient.WithRetryMax(0)), srv.URL),
		Config{RetryDelay: time.Millisecond, RateLimit: 1000, RateBurst: 10}, obs, zerolog.Nop())

	_, err := c.Balance(t.Context(), &domain.WatchedAccount{Address: watched, Asset: domain.NativeAsset()})
	require.NoError(t, err)
	assert.Equal(t, []string{"getBalance", "getBalance"}, obs.methods)
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithCancel(t.Context())
}
