package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPackage = "0x00000000000000000000000000000000000000000000000000000000000000aa"

// fakeNode answers JSON-RPC calls from per-method handlers and records the
// params it received.
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]func(params []json.RawMessage) (any, *rpcErr)
	calls    map[string][][]json.RawMessage
}

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		handlers: make(map[string]func([]json.RawMessage) (any, *rpcErr)),
		calls:    make(map[string][][]json.RawMessage),
	}
}

func (f *fakeNode) on(method string, h func(params []json.RawMessage) (any, *rpcErr)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeNode) callsTo(method string) [][]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64            `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.calls[req.Method] = append(f.calls[req.Method], req.Params)
	h, ok := f.handlers[req.Method]
	f.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = rpcErr{Code: -32601, Message: "method not found"}
	} else if result, rerr := h(req.Params); rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, node http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)
	signer, err := NewEd25519Signer(testSeed)
	require.NoError(t, err)
	c, err := NewClient(Config{
		URL:             srv.URL,
		PackageID:       testPackage,
		GasBudget:       10_000_000,
		RequestTimeout:  2 * time.Second,
		FinalityTimeout: 300 * time.Millisecond,
	}, signer, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	return c
}

func executedBlock(digest, checkpoint string) map[string]any {
	return map[string]any{
		"digest":     digest,
		"checkpoint": checkpoint,
		"effects":    map[string]any{"status": map[string]any{"status": "success"}},
		"objectChanges": []map[string]any{
			{"type": "mutated", "objectType": "0x2::coin::Coin<0x2::sui::SUI>", "objectId": "0xgas"},
			{"type": "created", "objectType": testPackage + "::certificate::Certificate", "objectId": "0xnft"},
		},
	}
}

func TestClient_SubmitMint(t *testing.T) {
	node := newFakeNode()
	txBytes := base64.StdEncoding.EncodeToString([]byte("tx-bytes"))
	node.on("unsafe_moveCall", func([]json.RawMessage) (any, *rpcErr) {
		return map[string]string{"txBytes": txBytes}, nil
	})
	node.on("sui_executeTransactionBlock", func([]json.RawMessage) (any, *rpcErr) {
		return executedBlock("DIGEST1", ""), nil
	})
	c := newTestClient(t, node)

	digest, err := c.SubmitMint(context.Background(), MintRequest{DataHash: "abc", ImageURL: "https://img", Recipient: "0xrecipient"})
	require.NoError(t, err)
	assert.Equal(t, "DIGEST1", digest)

	moveCall := node.callsTo("unsafe_moveCall")
	require.Len(t, moveCall, 1)
	var sender, pkg, module, function string
	require.NoError(t, json.Unmarshal(moveCall[0][0], &sender))
	require.NoError(t, json.Unmarshal(moveCall[0][1], &pkg))
	require.NoError(t, json.Unmarshal(moveCall[0][2], &module))
	require.NoError(t, json.Unmarshal(moveCall[0][3], &function))
	assert.Equal(t, c.signer.Address(), sender)
	assert.Equal(t, testPackage, pkg)
	assert.Equal(t, "certificate", module)
	assert.Equal(t, "mint_certificate", function)
	assert.JSONEq(t, `["abc","https://img","0xrecipient"]`, string(moveCall[0][5]))
	assert.JSONEq(t, `"10000000"`, string(moveCall[0][7]))

	execute := node.callsTo("sui_executeTransactionBlock")
	require.Len(t, execute, 1)
	assert.JSONEq(t, `"`+txBytes+`"`, string(execute[0][0]))
	assert.JSONEq(t, `"WaitForLocalExecution"`, string(execute[0][3]))
	var sigs []string
	require.NoError(t, json.Unmarshal(execute[0][1], &sigs))
	require.Len(t, sigs, 1)
	want, err := c.signer.SignTransaction([]byte("tx-bytes"))
	require.NoError(t, err)
	assert.Equal(t, want, sigs[0])
}

func TestClient_SubmitMint_Failures(t *testing.T) {
	t.Run("move call rejected", func(t *testing.T) {
		node := newFakeNode()
		node.on("unsafe_moveCall", func([]json.RawMessage) (any, *rpcErr) {
			return nil, &rpcErr{Code: -32602, Message: "Invalid params: package not found in module"}
		})
		_, err := newTestClient(t, node).SubmitMint(context.Background(), MintRequest{})
		require.Error(t, err)
		assert.Equal(t, ErrorNotFound, CategoryOf(err))
		assert.False(t, IsRetryable(err))
	})

	t.Run("contract refused", func(t *testing.T) {
		node := newFakeNode()
		node.on("unsafe_moveCall", func([]json.RawMessage) (any, *rpcErr) {
			return nil, &rpcErr{Code: -32002, Message: "MoveAbort in mint_certificate"}
		})
		_, err := newTestClient(t, node).SubmitMint(context.Background(), MintRequest{})
		assert.Equal(t, ErrorRejected, CategoryOf(err))
	})

	t.Run("node outage is retryable", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		_, err := c.SubmitMint(context.Background(), MintRequest{})
		assert.Equal(t, ErrorProviderOutage, CategoryOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("rate limited", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		_, err := c.SubmitMint(context.Background(), MintRequest{})
		assert.Equal(t, ErrorRateLimited, CategoryOf(err))
	})

	t.Run("garbage body", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		_, err := c.SubmitMint(context.Background(), MintRequest{})
		assert.Equal(t, ErrorBadData, CategoryOf(err))
	})
}

func TestClient_AwaitFinality(t *testing.T) {
	t.Run("polls until checkpointed", func(t *testing.T) {
		node := newFakeNode()
		var polls atomic.Int32
		node.on("sui_getTransactionBlock", func([]json.RawMessage) (any, *rpcErr) {
			switch polls.Add(1) {
			case 1:
				return nil, &rpcErr{Code: -32602, Message: "Could not find the referenced transaction"}
			case 2:
				return executedBlock("DIGEST1", ""), nil
			default:
				return executedBlock("DIGEST1", "1234"), nil
			}
		})
		outcome, err := newTestClient(t, node).AwaitFinality(context.Background(), "DIGEST1")
		require.NoError(t, err)
		assert.True(t, outcome.Checkpointed)
		assert.True(t, outcome.Success)
		assert.Equal(t, "0xnft", outcome.NFTID)
		assert.GreaterOrEqual(t, polls.Load(), int32(3))
	})

	t.Run("times out", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getTransactionBlock", func([]json.RawMessage) (any, *rpcErr) {
			return executedBlock("DIGEST1", ""), nil
		})
		_, err := newTestClient(t, node).AwaitFinality(context.Background(), "DIGEST1")
		assert.Equal(t, ErrorTimeout, CategoryOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("failed execution is reported, not retried", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getTransactionBlock", func([]json.RawMessage) (any, *rpcErr) {
			block := executedBlock("DIGEST1", "99")
			block["effects"] = map[string]any{"status": map[string]any{"status": "failure", "error": "InsufficientGas"}}
			block["objectChanges"] = []any{}
			return block, nil
		})
		outcome, err := newTestClient(t, node).AwaitFinality(context.Background(), "DIGEST1")
		require.NoError(t, err)
		assert.False(t, outcome.Success)
		assert.Equal(t, "InsufficientGas", outcome.Error)
		assert.Empty(t, outcome.NFTID)
	})
}

func TestClient_GetObject(t *testing.T) {
	t.Run("certificate object", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getObject", func([]json.RawMessage) (any, *rpcErr) {
			return map[string]any{"data": map[string]any{
				"objectId": "0xnft",
				"type":     testPackage + "::certificate::Certificate",
				"owner":    map[string]string{"AddressOwner": "0xowner"},
				"content": map[string]any{
					"dataType": "moveObject",
					"type":     testPackage + "::certificate::Certificate",
					"fields":   map[string]any{"data_hash": "abc", "recipient": "0xowner"},
				},
			}}, nil
		})
		obj, err := newTestClient(t, node).GetObject(context.Background(), "0xnft")
		require.NoError(t, err)
		assert.Equal(t, "0xnft", obj.ID)
		assert.Equal(t, "0xowner", obj.Owner)
		assert.JSONEq(t, `"abc"`, string(obj.Fields["data_hash"]))
	})

	t.Run("missing object", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getObject", func([]json.RawMessage) (any, *rpcErr) {
			return map[string]any{"error": map[string]string{"code": "notExists", "object_id": "0xnft"}}, nil
		})
		_, err := newTestClient(t, node).GetObject(context.Background(), "0xnft")
		assert.Equal(t, ErrorNotFound, CategoryOf(err))
	})

	t.Run("package object is not a move object", func(t *testing.T) {
		node := newFakeNode()
		node.on("sui_getObject", func([]json.RawMessage) (any, *rpcErr) {
			return map[string]any{"data": map[string]any{
				"objectId": testPackage,
				"type":     "package",
				"owner":    "Immutable",
				"content":  map[string]any{"dataType": "package"},
			}}, nil
		})
		_, err := newTestClient(t, node).GetObject(context.Background(), testPackage)
		assert.Equal(t, ErrorBadData, CategoryOf(err))
	})
}

func TestExplorerLink(t *testing.T) {
	assert.Equal(t, "https://suiscan.xyz/testnet/tx/ABC", ExplorerLink("https://suiscan.xyz/testnet/", "ABC"))
}
