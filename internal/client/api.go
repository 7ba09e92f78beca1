// Package client drives the login flow against the auth API: an HTTP client,
// the two-step login state machine and the six-cell code input.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// User is the public user record returned by the API.
type User struct {
	ID            string `json:"_id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	IsOnboarded   bool   `json:"isOnboarded"`
	EmailVerified bool   `json:"emailVerified"`
}

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	Status       string `json:"status"`
	OTPToken     string `json:"otpToken"`
	Email        string `json:"email"`
	ExpiresInMin int    `json:"expiresInMin"`
	EmailSent    bool   `json:"emailSent"`
}

// ResendResponse is the body of a successful POST /resend-otp.
type ResendResponse struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"emailSent"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status        int
	Message       string   `json:"message"`
	MissingFields []string `json:"missingFields"`
}

// Error formats the status and message.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client talks to /api/auth. It keeps cookies so the session cookie set by
// verify-otp is sent on later calls.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client for the server at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/") + "/api/auth",
		http: &http.Client{Jar: jar, Timeout: 15 * time.Second},
	}, nil
}

// Signup creates an account. It does not sign in.
func (c *Client) Signup(ctx context.Context, email, password, fullName string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := c.post(ctx, "/signup", map[string]string{"email": email, "password": password, "fullName": fullName}, &out)
	return out.User, err
}

// Login submits credentials and returns the OTP challenge.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.post(ctx, "/login", map[string]string{"email": email, "password": password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP submits the code; on success the session cookie is stored in
// the jar.
func (c *Client) VerifyOTP(ctx context.Context, code, otpToken string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.post(ctx, "/verify-otp", map[string]string{"code": code, "otpToken": otpToken}, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ResendOTP requests a fresh code for the challenge bound to otpToken.
func (c *Client) ResendOTP(ctx context.Context, otpToken string) (*ResendResponse, error) {
	var out ResendResponse
	if err := c.post(ctx, "/resend-otp", map[string]string{"otpToken": otpToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout clears the session cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/logout", nil, nil)
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
