package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// BlockhashResult is the response of getLatestBlockhash.
type BlockhashResult struct {
	Blockhash            [32]byte
	LastValidBlockHeight uint64
}

// GetLatestBlockhash retrieves the most recent blockhash, required to
// assemble a transaction message before signing.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context, commitment string) (*BlockhashResult, error) {
	params := []interface{}{}
	if commitment != "" {
		params = append(params, map[string]interface{}{"commitment": commitment})
	}

	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}

	addr, err := DecodeAddress(result.Value.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("solana: decode blockhash: %w", err)
	}

	return &BlockhashResult{
		Blockhash:            [32]byte(addr),
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetBalance retrieves the lamport balance of pubkey.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []interface{}{pubkey}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetAccountInfoParsed retrieves account info using the jsonParsed
// encoding, needed to read an SPL mint's decimals/supply/freeze
// authority without manually decoding the account's base64 layout.
func (c *HTTPClient) GetAccountInfoParsed(ctx context.Context, pubkey string) (*ParsedAccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding": "jsonParsed",
		},
	}

	var result struct {
		Value *struct {
			Lamports   uint64          `json:"lamports"`
			Owner      string          `json:"owner"`
			Executable bool            `json:"executable"`
			Data       json.RawMessage `json:"data"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}

	return &ParsedAccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RawParsed:  result.Value.Data,
	}, nil
}

// ParsedAccountInfo is an account fetched with jsonParsed encoding.
// RawParsed holds the full `data` field (an object for parsed
// accounts, a 2-element array for unparseable ones); callers that know
// the expected parsed shape (e.g. SPL mint) unmarshal it further.
type ParsedAccountInfo struct {
	Lamports   uint64
	Owner      string
	Executable bool
	RawParsed  json.RawMessage
}

// MintAccountData is the parsed.info shape of an SPL mint account
// under jsonParsed encoding.
type MintAccountData struct {
	Decimals        int    `json:"decimals"`
	Supply          string `json:"supply"`
	MintAuthority   string `json:"mintAuthority"`
	FreezeAuthority string `json:"freezeAuthority"`
	IsInitialized   bool   `json:"isInitialized"`
}

// SimulateResult is the response of simulateTransaction.
type SimulateResult struct {
	Err      interface{}
	Logs     []string
	UnitsConsumed uint64
}

// SimulateTransaction dry-runs a signed transaction without
// submitting it, used to reject a doomed buy before paying for it.
func (c *HTTPClient) SimulateTransaction(ctx context.Context, txBase64 string) (*SimulateResult, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":       "base64",
			"sigVerify":      false,
			"commitment":     "processed",
			"replaceRecentBlockhash": true,
		},
	}

	var result struct {
		Value struct {
			Err           interface{} `json:"err"`
			Logs          []string    `json:"logs"`
			UnitsConsumed uint64      `json:"unitsConsumed"`
		} `json:"value"`
	}
	if err := c.call(ctx, "simulateTransaction", params, &result); err != nil {
		return nil, err
	}

	return &SimulateResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: result.Value.UnitsConsumed,
	}, nil
}

// SendTransaction submits a signed, base64-encoded transaction and
// returns its signature.
func (c *HTTPClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":    "base64",
			"skipPreflight": true,
			"maxRetries":  0,
		},
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// ConfirmTransaction polls getSignatureStatuses until signature
// reaches commitment or ctx is done.
func (c *HTTPClient) ConfirmTransaction(ctx context.Context, signature, commitment string, pollInterval time.Duration) (bool, error) {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	for {
		var result struct {
			Value []*struct {
				ConfirmationStatus string      `json:"confirmationStatus"`
				Err                interface{} `json:"err"`
			} `json:"value"`
		}

		err := c.call(ctx, "getSignatureStatuses", []interface{}{[]string{signature}}, &result)
		if err != nil {
			return false, err
		}

		if len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if status.Err != nil {
				return false, fmt.Errorf("solana: transaction %s failed on-chain: %v", signature, status.Err)
			}
			if statusSatisfies(status.ConfirmationStatus, commitment) {
				return true, nil
			}
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// statusSatisfies reports whether got meets or exceeds want in the
// platform's commitment ordering (processed < confirmed < finalized).
func statusSatisfies(got, want string) bool {
	rank := map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}
	if want == "" {
		want = "confirmed"
	}
	return rank[got] >= rank[want]
}
