package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tokenvesting/crypto"
	"tokenvesting/rpc"
)

// client posts JSON-RPC requests to the daemon.
type client struct {
	endpoint string
	token    string
	http     *http.Client
}

type authOptions struct {
	token    string
	secret   string
	caller   string
	issuer   string
	audience string
	ttl      time.Duration
}

// bearer returns the configured token, minting one from the shared secret
// when only a caller address was given.
func (o authOptions) bearer() (string, error) {
	if tok := strings.TrimSpace(o.token); tok != "" {
		return tok, nil
	}
	if strings.TrimSpace(o.secret) == "" || strings.TrimSpace(o.caller) == "" {
		return "", nil
	}
	caller, err := crypto.ParseAddress(o.caller)
	if err != nil {
		return "", fmt.Errorf("invalid -caller: %w", err)
	}
	return rpc.IssueCallerToken(o.secret, o.issuer, o.audience, caller, o.ttl)
}

func (c *client) call(method string, params []interface{}) (json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		raw = append(raw, data)
	}
	body, err := json.Marshal(rpc.RPCRequest{JSONRPC: "2.0", Method: method, Params: raw, ID: 1})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpc.RPCError   `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	return envelope.Result, nil
}

func writeResult(w io.Writer, result json.RawMessage) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, pretty.String())
}
