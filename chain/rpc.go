package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/regenmarkets/libvebribe-go/merkle"
)

// RPCConfig holds the connection and contract parameters for one network.
type RPCConfig struct {
	// URL is the Ethereum JSON-RPC endpoint.
	URL string `json:"url"`
	// From is the node-managed account that signs submissions.
	From string `json:"from"`
	// RewardDistributor is the distributor contract address.
	RewardDistributor string `json:"rewardDistributor"`
}

// RPCClient implements Client over Ethereum JSON-RPC. It handles request
// serialization, batching, and response parsing; claimed-amount reads
// for a whole user are issued as a single batch round trip.
type RPCClient struct {
	cfg    RPCConfig
	client *http.Client
	nextID atomic.Int64
}

// Compile-time interface check.
var _ Client = (*RPCClient)(nil)

// NewRPCClient creates a client for the given network configuration.
func NewRPCClient(cfg RPCConfig) *RPCClient {
	return &RPCClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Function selectors, first 4 bytes of the keccak of the signature.
var (
	selUpdateRewardsMetadata = merkle.Keccak256([]byte("updateRewardsMetadata((bytes32,address,bytes32,bytes32)[])"))[:4]
	selClaimed               = merkle.Keccak256([]byte("claimed(bytes32,address)"))[:4]
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SubmitCommitments implements Client. The commitment tuples are static,
// so the calldata is packed by hand: selector, array offset, length, and
// one (identifier, token, root, zero placeholder) word group per entry.
func (c *RPCClient) SubmitCommitments(ctx context.Context, entries []CommitmentEntry) (string, error) {
	var data bytes.Buffer
	data.Write(selUpdateRewardsMetadata)
	data.Write(word(big.NewInt(32)))                  // offset of the array argument
	data.Write(word(big.NewInt(int64(len(entries))))) // element count
	for _, e := range entries {
		id, err := hash32(e.Identifier)
		if err != nil {
			return "", err
		}
		token, err := merkle.ParseAddress(e.Token)
		if err != nil {
			return "", fmt.Errorf("chain: token: %w", err)
		}
		root, err := hash32(e.Root)
		if err != nil {
			return "", err
		}
		data.Write(id)
		data.Write(leftPad(token))
		data.Write(root)
		data.Write(make([]byte, 32)) // metadata proof slot, unused
	}

	params := []interface{}{map[string]string{
		"from": c.cfg.From,
		"to":   c.cfg.RewardDistributor,
		"data": "0x" + hex.EncodeToString(data.Bytes()),
	}}

	var txHash string
	if err := c.call(ctx, "eth_sendTransaction", params, &txHash); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	return txHash, nil
}

// TransactionStatus implements Client.
func (c *RPCClient) TransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	var receipt struct {
		Status string `json:"status"`
	}
	raw := json.RawMessage{}
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{txHash}, &raw); err != nil {
		return StatusUnknown, err
	}
	if string(raw) == "null" || len(raw) == 0 {
		return StatusUnknown, nil
	}
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return StatusUnknown, fmt.Errorf("%w: receipt: %w", ErrInvalidResponse, err)
	}
	if receipt.Status == "0x1" {
		return StatusSuccess, nil
	}
	return StatusFailed, nil
}

// ClaimedAmounts implements Client. All reads go out as one JSON-RPC
// batch of eth_call requests against claimed(bytes32,address).
func (c *RPCClient) ClaimedAmounts(ctx context.Context, queries []ClaimQuery) ([]*big.Int, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	batch := make([]rpcRequest, len(queries))
	ids := make(map[int64]int, len(queries))
	for i, q := range queries {
		id, err := hash32(q.Identifier)
		if err != nil {
			return nil, err
		}
		user, err := merkle.ParseAddress(q.User)
		if err != nil {
			return nil, fmt.Errorf("chain: user: %w", err)
		}

		var data bytes.Buffer
		data.Write(selClaimed)
		data.Write(id)
		data.Write(leftPad(user))

		reqID := c.nextID.Add(1)
		ids[reqID] = i
		batch[i] = rpcRequest{
			JSONRPC: "2.0",
			ID:      reqID,
			Method:  "eth_call",
			Params: []interface{}{
				map[string]string{
					"to":   c.cfg.RewardDistributor,
					"data": "0x" + hex.EncodeToString(data.Bytes()),
				},
				"latest",
			},
		}
	}

	var responses []rpcResponse
	if err := c.post(ctx, batch, &responses); err != nil {
		return nil, err
	}
	if len(responses) != len(queries) {
		return nil, fmt.Errorf("%w: %d responses for %d calls", ErrInvalidResponse, len(responses), len(queries))
	}

	// Batch responses may arrive in any order; match by request ID.
	amounts := make([]*big.Int, len(queries))
	for _, resp := range responses {
		i, ok := ids[resp.ID]
		if !ok {
			return nil, fmt.Errorf("%w: unexpected response id %d", ErrInvalidResponse, resp.ID)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%w: eth_call: %s", ErrInvalidResponse, resp.Error.Message)
		}
		var result string
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		n, err := parseQuantity(result)
		if err != nil {
			return nil, err
		}
		amounts[i] = n
	}
	return amounts, nil
}

// call invokes a single JSON-RPC method and decodes the result.
func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}

	var resp rpcResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("chain: rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
	}
	return nil
}

// post sends a request or batch and decodes the response body.
func (c *RPCClient) post(ctx context.Context, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("chain: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chain: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrInvalidResponse, resp.StatusCode, data)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrInvalidResponse, err)
	}
	return nil
}

// word encodes an integer as a 32-byte big-endian word.
func word(n *big.Int) []byte {
	return n.FillBytes(make([]byte, 32))
}

// leftPad pads an address to a 32-byte word.
func leftPad(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// hash32 decodes a 0x-prefixed 32-byte hash.
func hash32(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil || len(b) != 32 {
		return nil, fmt.Errorf("%w: not a 32-byte hash: %q", ErrInvalidResponse, s)
	}
	return b, nil
}

// parseQuantity decodes a 0x-prefixed hex quantity or data word.
func parseQuantity(s string) (*big.Int, error) {
	h := strings.TrimPrefix(strings.ToLower(s), "0x")
	if h == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return nil, fmt.Errorf("%w: quantity %q", ErrInvalidResponse, s)
	}
	return n, nil
}
