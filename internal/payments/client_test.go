package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/naili/storefront/pkg/config"
	pkgerrors "github.com/naili/storefront/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func testRequest() Request {
	return Request{
		Email:    "ada@example.com",
		FullName: "Ada Obi",
		Amount:   decimal.NewFromInt(3500),
		Metadata: Metadata{UserID: "user-1", OrderID: "order-1", CartID: "cart-1", Address: "12 Palm St", Phone: "0800000000"},
	}
}

func TestInitiateSendsPayloadAndReadsCheckoutURL(t *testing.T) {
	var captured map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"checkoutUrl":"https://pay.test/abc"}`))
	}))
	defer srv.Close()

	client, err := NewClient(config.PaymentsConfig{FunctionURL: srv.URL, AnonKey: "anon"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	url, err := client.Initiate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if url != "https://pay.test/abc" {
		t.Fatalf("unexpected url %q", url)
	}
	if auth != "Bearer anon" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if captured["amount"] != float64(3500) {
		t.Fatalf("expected numeric amount, got %#v", captured["amount"])
	}
	metadata, _ := captured["metadata"].(map[string]any)
	if metadata["order_id"] != "order-1" || metadata["user_id"] != "user-1" {
		t.Fatalf("unexpected metadata %#v", metadata)
	}
}

func TestInitiateFallsBackToAuthorizationURL(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":{"authorization_url":"https://checkout.paystack.test/xyz"}}`), nil
	})
	client, _ := NewClient(config.PaymentsConfig{FunctionURL: "http://fn.test/create-paystack"}, WithHTTPClient(&http.Client{Transport: rt}))

	url, err := client.Initiate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if url != "https://checkout.paystack.test/xyz" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestInitiateFailures(t *testing.T) {
	cases := map[string]*http.Response{
		"non-2xx":     jsonResponse(http.StatusBadGateway, `{"error":"upstream"}`),
		"missing url": jsonResponse(http.StatusOK, `{"data":{}}`),
		"bad json":    jsonResponse(http.StatusOK, `not json`),
	}
	for name, resp := range cases {
		resp := resp
		rt := roundTripFunc(func(req *http.Request) (*http.Response, error) { return resp, nil })
		client, _ := NewClient(config.PaymentsConfig{FunctionURL: "http://fn.test"}, WithHTTPClient(&http.Client{Transport: rt}))

		_, err := client.Initiate(context.Background(), testRequest())
		if !pkgerrors.HasCode(err, pkgerrors.CodeRemoteUnavailable) {
			t.Fatalf("%s: expected remote unavailable, got %v", name, err)
		}
	}
}

func TestInitiateValidatesRequest(t *testing.T) {
	client, _ := NewClient(config.PaymentsConfig{FunctionURL: "http://fn.test"})

	req := testRequest()
	req.Amount = decimal.Zero
	if _, err := client.Initiate(context.Background(), req); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req = testRequest()
	req.Email = ""
	if _, err := client.Initiate(context.Background(), req); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := NewClient(config.PaymentsConfig{}); err == nil {
		t.Fatal("expected missing url error")
	}
}
