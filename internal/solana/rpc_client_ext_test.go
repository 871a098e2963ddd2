package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func jsonRPCServer(t *testing.T, handle func(method string) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  handle(req.Method),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetLatestBlockhash(t *testing.T) {
	server := jsonRPCServer(t, func(method string) interface{} {
		if method != "getLatestBlockhash" {
			t.Errorf("unexpected method %s", method)
		}
		return map[string]interface{}{
			"value": map[string]interface{}{
				"blockhash":            "11111111111111111111111111111111",
				"lastValidBlockHeight": 1000,
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	result, err := client.GetLatestBlockhash(context.Background(), "")
	if err != nil {
		t.Fatalf("GetLatestBlockhash: %v", err)
	}
	if result.LastValidBlockHeight != 1000 {
		t.Errorf("expected height 1000, got %d", result.LastValidBlockHeight)
	}
}

func TestGetBalance(t *testing.T) {
	server := jsonRPCServer(t, func(method string) interface{} {
		return map[string]interface{}{"value": 42}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	bal, err := client.GetBalance(context.Background(), "somepubkey")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal != 42 {
		t.Errorf("expected 42, got %d", bal)
	}
}

func TestSimulateTransactionReportsError(t *testing.T) {
	server := jsonRPCServer(t, func(method string) interface{} {
		return map[string]interface{}{
			"value": map[string]interface{}{
				"err":           map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
				"logs":          []string{"Program log: fail"},
				"unitsConsumed": 1500,
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	result, err := client.SimulateTransaction(context.Background(), "base64tx")
	if err != nil {
		t.Fatalf("SimulateTransaction: %v", err)
	}
	if result.Err == nil {
		t.Error("expected simulation error to be reported")
	}
}

func TestSendTransaction(t *testing.T) {
	server := jsonRPCServer(t, func(method string) interface{} {
		return "5eykt4UsFv8P8NJdTREpY1vzqKqZKvdpKuc147dw2N9d"
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	sig, err := client.SendTransaction(context.Background(), "base64tx")
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig == "" {
		t.Error("expected non-empty signature")
	}
}

func TestConfirmTransactionSucceedsOnFinalized(t *testing.T) {
	server := jsonRPCServer(t, func(method string) interface{} {
		return map[string]interface{}{
			"value": []interface{}{
				map[string]interface{}{
					"confirmationStatus": "finalized",
					"err":                nil,
				},
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := client.ConfirmTransaction(ctx, "sig", "confirmed", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ConfirmTransaction: %v", err)
	}
	if !ok {
		t.Error("expected confirmation to succeed")
	}
}

func TestConfirmTransactionReportsOnChainFailure(t *testing.T) {
	server := jsonRPCServer(t, func(method string) interface{} {
		return map[string]interface{}{
			"value": []interface{}{
				map[string]interface{}{
					"confirmationStatus": "confirmed",
					"err":                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
				},
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.ConfirmTransaction(ctx, "sig", "confirmed", 10*time.Millisecond)
	if err == nil {
		t.Error("expected on-chain failure to surface as an error")
	}
}

func TestStatusSatisfies(t *testing.T) {
	cases := []struct {
		got, want string
		ok        bool
	}{
		{"processed", "confirmed", false},
		{"confirmed", "confirmed", true},
		{"finalized", "confirmed", true},
		{"confirmed", "", true},
	}
	for _, c := range cases {
		if got := statusSatisfies(c.got, c.want); got != c.ok {
			t.Errorf("statusSatisfies(%q,%q) = %v, want %v", c.got, c.want, got, c.ok)
		}
	}
}
