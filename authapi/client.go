package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/session"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 1 << 20

// Paths holds the endpoint paths, relative to the base URL.
type Paths struct {
	Login      map[session.Role]string
	Roles      string
	CheckToken string
	Refresh    string
	Audit      string
}

// DefaultPaths returns the gym API's endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Login: map[session.Role]string{
			session.RoleMember:  "/api/members/login",
			session.RoleAdmin:   "/api/admin/login",
			session.RoleTrainer: "/api/trainers/login",
		},
		Roles:      "/api/auth/roles",
		CheckToken: "/api/auth/check-token",
		Refresh:    "/api/auth/refresh",
		Audit:      "/api/audit-logs",
	}
}

// Client talks to the auth API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	paths      Paths
}

// NewClient returns a client for baseURL. A nil httpClient gets a plain
// client with a 30s timeout. Zero-valued paths fall back to DefaultPaths.
func NewClient(baseURL string, httpClient *http.Client, paths Paths) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	def := DefaultPaths()
	if paths.Login == nil {
		paths.Login = def.Login
	}
	if paths.Roles == "" {
		paths.Roles = def.Roles
	}
	if paths.CheckToken == "" {
		paths.CheckToken = def.CheckToken
	}
	if paths.Refresh == "" {
		paths.Refresh = def.Refresh
	}
	if paths.Audit == "" {
		paths.Audit = def.Audit
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		paths:      paths,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token          string `json:"token"`
	RefreshToken   string `json:"refreshToken,omitempty"`
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	RoleSpecificID string `json:"roleSpecificId,omitempty"`
	MemberID       string `json:"memberId,omitempty"`
}

// SpecificID returns the role-specific identifier, if the server sent one.
func (r *LoginResponse) SpecificID() string {
	if r.RoleSpecificID != "" {
		return r.RoleSpecificID
	}
	return r.MemberID
}

// Login posts credentials to the login endpoint of role.
func (c *Client) Login(ctx context.Context, role session.Role, username, password string) (*LoginResponse, error) {
	path, ok := c.paths.Login[role]
	if !ok || path == "" {
		return nil, fmt.Errorf("login: no endpoint for role %q", role)
	}
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login: %w: missing token", ErrMalformedResponse)
	}
	return &out, nil
}

// Roles returns the roles granted to the bearer of token.
func (c *Client) Roles(ctx context.Context, token string) ([]string, error) {
	var out struct {
		Roles []string `json:"roles"`
	}
	if err := c.do(ctx, http.MethodGet, c.paths.Roles, token, nil, &out); err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}
	return out.Roles, nil
}

// CheckToken returns nil when the server accepts token.
func (c *Client) CheckToken(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodGet, c.paths.CheckToken, token, nil, nil); err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	return nil
}

// RefreshResponse is the body of a successful refresh. RefreshToken is set
// only when the server rotates it.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Refresh exchanges refreshToken for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := c.do(ctx, http.MethodPost, c.paths.Refresh, "", body, &out); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("refresh: %w: missing accessToken", ErrMalformedResponse)
	}
	return &out, nil
}

// PostAudit sends one audit event. token may be empty.
func (c *Client) PostAudit(ctx context.Context, token string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, c.paths.Audit, token, body, nil); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	// Maintenance can be flagged on any status, including 200.
	if maintenanceFlagged(raw) {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: empty body", ErrMalformedResponse)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func decodeError(status int, raw []byte) *Error {
	apiErr := &Error{Status: status}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Code = body.Code
	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = body.Error
	}
	apiErr.Maintenance = body.Maintenance
	apiErr.UserType = body.UserType
	return apiErr
}

func maintenanceFlagged(raw []byte) bool {
	if !bytes.Contains(raw, []byte(`"maintenance"`)) {
		return false
	}
	var body errorBody
	return json.Unmarshal(raw, &body) == nil && body.Maintenance
}
