package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"tokenvesting/core"
	"tokenvesting/core/genesis"
	"tokenvesting/native/token"
	"tokenvesting/storage"
)

const (
	testSecret   = "rpc-test-secret"
	testIssuer   = "rpc-tests"
	testAudience = "unit-tests"
	testStart    = 1622551248
)

var (
	testOwner       = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testVault       = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testBeneficiary = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testToken       = common.HexToAddress("0x00000000000000000000000000000000000000ee")
)

type testEnv struct {
	node   *core.Node
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.NodeConfig{
		Owner: testOwner,
		Vault: testVault,
		Token: token.Metadata{Address: testToken, Symbol: "VEST", Name: "Vesting Token", Decimals: 18},
	})
	require.NoError(t, err)
	_, err = node.ApplyGenesis(&genesis.Spec{Alloc: map[string]string{testVault.Hex(): "100000000"}})
	require.NoError(t, err)
	node.Engine().SetNowFunc(func() int64 { return testStart + 500 })

	if cfg.Auth.HMACSecret == "" {
		cfg.Auth = AuthConfig{HMACSecret: testSecret, Issuer: testIssuer, Audience: testAudience}
	}
	srv, err := NewServer(node, cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = node.Close()
	})
	return &testEnv{node: node, server: srv, http: ts}
}

func (e *testEnv) token(t *testing.T, caller [20]byte) string {
	t.Helper()
	tok, err := IssueCallerToken(testSecret, testIssuer, testAudience, caller, time.Minute)
	require.NoError(t, err)
	return tok
}

// call posts a JSON-RPC request and decodes the response. token may be empty.
func (e *testEnv) call(t *testing.T, token, method string, params ...interface{}) (int, RPCResponse) {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		data, err := json.Marshal(p)
		require.NoError(t, err)
		raw = append(raw, data)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: raw, ID: 1})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.http.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// result re-decodes the generic result into dst.
func result(t *testing.T, resp RPCResponse, dst interface{}) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected rpc error: %+v", resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, dst))
}

func decodeJSON(resp *http.Response, dst interface{}) error {
	return json.NewDecoder(resp.Body).Decode(dst)
}
