package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/model"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

func TestMCPServerCreation(t *testing.T) {
	h := New(nil, nil, nil, nil, Options{}, nil)
	if h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	mux := newDeps().mux()

	if sessionID := initMCPSession(t, mux); sessionID == "" {
		t.Error("expected an Mcp-Session-Id header")
	}
}

func TestMCPToolsList(t *testing.T) {
	mux := newDeps().mux()
	sessionID := initMCPSession(t, mux)

	resp := mcpCall(t, mux, sessionID, jsonrpcRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})

	var toolsResult struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expectedTools := map[string]bool{
		"search_products":         false,
		"get_product":             false,
		"create_checkout_session": false,
		"get_order":               false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPSearchProducts(t *testing.T) {
	deps := newDeps()
	var got model.ProductQuery
	deps.commerce.FetchProductsFunc = func(_ context.Context, q model.ProductQuery) (*model.ProductPage, error) {
		got = q
		return &model.ProductPage{Results: []model.Product{{Slug: "mug", Title: "Mug"}}, Total: 7, Count: 1}, nil
	}
	mux := deps.mux()
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "search_products", map[string]interface{}{
		"sort":  "price-high",
		"limit": 500,
	})

	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	if got.Limit != 100 || len(got.Sort) != 1 || got.Sort[0] != "price desc" {
		t.Errorf("query = %+v", got)
	}

	var out SearchProductsOutput
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}
	if out.Total != 7 || len(out.Products) != 1 || out.Products[0].Slug != "mug" {
		t.Errorf("output = %+v", out)
	}
}

func TestMCPGetProductNotFound(t *testing.T) {
	mux := newDeps().mux()
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_product", map[string]interface{}{"slug": "ghost"})

	if !result.IsError {
		t.Fatal("expected a tool error")
	}
	if len(result.Content) == 0 || !strings.Contains(result.Content[0].Text, "NOT_FOUND") {
		t.Errorf("content = %+v", result.Content)
	}
}

func TestMCPCreateCheckoutSessionInvalidItems(t *testing.T) {
	mux := newDeps().mux()
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "create_checkout_session", map[string]interface{}{
		"items": []map[string]interface{}{{"sku": "MUG-RED", "quantity": 0}},
	})

	if !result.IsError {
		t.Fatal("expected a tool error")
	}
	if len(result.Content) == 0 || !strings.Contains(result.Content[0].Text, "Invalid cart items") {
		t.Errorf("content = %+v", result.Content)
	}
}

func TestMCPGetOrderByEmail(t *testing.T) {
	deps := newDeps()
	deps.commerce.FindLatestOrderByEmailFunc = func(_ context.Context, email string) (*model.Order, error) {
		if email != "shopper@example.com" {
			return nil, nil
		}
		return &model.Order{ID: "order-9", OrderNumber: "1009", CustomerEmail: email}, nil
	}
	mux := deps.mux()
	sessionID := initMCPSession(t, mux)

	result := callTool(t, mux, sessionID, "get_order", map[string]interface{}{"email": "shopper@example.com"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	var out GetOrderOutput
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}
	if out.Order == nil || out.Order.OrderID != "order-9" {
		t.Errorf("output = %+v", out)
	}

	result = callTool(t, mux, sessionID, "get_order", map[string]interface{}{})
	if !result.IsError {
		t.Error("expected a tool error without lookup keys")
	}
}

// callTool invokes an MCP tool and returns its result.
func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args interface{}) callToolResult {
	t.Helper()

	raw, _ := json.Marshal(args)
	resp := mcpCall(t, mux, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: raw},
	})

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	return result
}

// mcpCall posts a JSON-RPC request on an initialized session.
func mcpCall(t *testing.T, mux *http.ServeMux, sessionID string, req jsonrpcRequest) jsonrpcResponse {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	return resp
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2026-01-11",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}
