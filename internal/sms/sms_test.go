package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"lead_intake_backend/platform/logger"
)

type twilioConfig struct {
	baseURL string
}

func (c twilioConfig) GetTwilioAccountSID() string     { return "AC123" }
func (c twilioConfig) GetTwilioAuthToken() string      { return "secret" }
func (c twilioConfig) GetTwilioPhoneNumber() string    { return "+447700900000" }
func (c twilioConfig) GetTwilioBaseURL() string        { return c.baseURL }
func (c twilioConfig) GetTwilioTimeout() time.Duration { return 2 * time.Second }
func (c twilioConfig) IsTwilioEnabled() bool           { return c.baseURL != "" }

func TestSendPostsFormWithBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("basic auth = %q/%q (%v)", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("To") != "+447400123456" || r.PostForm.Get("From") != "+447700900000" || r.PostForm.Get("Body") != "hello" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	client := NewClient(twilioConfig{baseURL: srv.URL}, logger.Nop())
	msg, err := client.Send(context.Background(), "+447400123456", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != "SM1" || msg.Status != "queued" {
		t.Fatalf("message = %+v", msg)
	}
}

func TestSendReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	_, err := NewClient(twilioConfig{baseURL: srv.URL}, logger.Nop()).Send(context.Background(), "+1", "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != 21211 {
		t.Fatalf("api error = %+v", apiErr)
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(twilioConfig{baseURL: srv.URL}, logger.Nop())
	for i := 0; i < 5; i++ {
		_, _ = client.Send(context.Background(), "+447400123456", "hi")
	}

	_, err := client.Send(context.Background(), "+447400123456", "hi")
	if err == nil {
		t.Fatal("expected open breaker error")
	}
	if calls != 5 {
		t.Fatalf("calls = %d, want 5 before the breaker opened", calls)
	}
}

func TestNilClientIsDisabled(t *testing.T) {
	client := NewClient(twilioConfig{}, logger.Nop())
	if client != nil {
		t.Fatal("expected nil client without credentials")
	}
	if _, err := client.Send(context.Background(), "+447400123456", "hi"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestVerifySignature(t *testing.T) {
	// Reference values from Twilio's webhook security documentation.
	token := "12345"
	fullURL := "https://mycompany.com/myapp.php?foo=1&bar=2"
	params := url.Values{
		"CallSid": {"CA1234567890ABCDE"},
		"Caller":  {"+12349013030"},
		"Digits":  {"1234"},
		"From":    {"+12349013030"},
		"To":      {"+18005551212"},
	}
	const want = "0/KCTR6DLpKmkAf8muzZqo1nDgQ="

	if got := Signature(token, fullURL, params); got != want {
		t.Fatalf("Signature = %q, want %q", got, want)
	}
	if !VerifySignature(token, fullURL, params, want) {
		t.Fatal("expected valid signature")
	}

	tampered := url.Values{}
	for k, v := range params {
		tampered[k] = v
	}
	tampered.Set("Digits", "9999")
	if VerifySignature(token, fullURL, tampered, want) {
		t.Fatal("tampered params must not verify")
	}
	if VerifySignature("", fullURL, params, want) {
		t.Fatal("empty token must not verify")
	}
}
