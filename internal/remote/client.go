package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

const (
	TokenHeader = "X-PLANNER-TOKEN"
	UserAgent   = "gymplanner/1"

	DocumentPath = "/sync/document"
	LoginPath    = "/a/login"
	LogoutPath   = "/a/logout"
	RegisterPath = "/a/register"

	// MaxDocumentBytes is the largest document body Fetch accepts.
	MaxDocumentBytes = 8 * 1024 * 1024

	defaultTimeout = 10 * time.Second
)

var (
	ErrRemoteUnreachable = errors.New("remote store unreachable")
	ErrRemoteParse       = errors.New("remote document malformed")
	ErrStalePush         = errors.New("remote holds a newer document")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUsernameTaken     = errors.New("username taken")
)

// Client talks to the cloud sync service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient gets an
// instrumented default one.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch returns the document of the identity, or nil if the account has none.
// Without an identity it does nothing.
func (c *Client) Fetch(ctx context.Context, id Identity) (doc *Document, err error) {
	if !id.Present() {
		return nil, nil
	}

	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.fetch")
	span.SetAttributes(attribute.String("user.id", id.UserID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	resp, err := c.do(ctx, http.MethodGet, DocumentPath, id.Token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnreachable, ErrUnauthorized)
	default:
		return nil, fmt.Errorf("%w: fetch status %d", ErrRemoteUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRemoteUnreachable, err)
	}
	// a cut off document must not be mistaken for an unreadable one
	if len(body) > MaxDocumentBytes {
		return nil, fmt.Errorf("%w: document larger than %d bytes", ErrRemoteUnreachable, MaxDocumentBytes)
	}

	doc = &Document{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteParse, err)
	}
	if _, err := doc.SyncedAt(); err != nil {
		log.Warnf("remote document of %s has unparseable lastSynced %q", id.UserID, doc.LastSynced)
	}
	return doc, nil
}

// Push replaces the document of the identity. Without an identity it does nothing.
func (c *Client) Push(ctx context.Context, id Identity, doc Document) (err error) {
	if !id.Present() {
		return nil
	}

	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.push")
	span.SetAttributes(
		attribute.String("user.id", id.UserID),
		attribute.String("last_synced", doc.LastSynced),
	)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, DocumentPath, id.Token, body)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return ErrStalePush
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrRemoteUnreachable, ErrUnauthorized)
	default:
		return fmt.Errorf("%w: push status %d", ErrRemoteUnreachable, resp.StatusCode)
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body, err := json.Marshal(credentials{Username: username, Password: password})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, RegisterPath, "", body)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return ErrUsernameTaken
	default:
		return fmt.Errorf("register: status %d", resp.StatusCode)
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (Identity, error) {
	body, err := json.Marshal(credentials{Username: username, Password: password})
	if err != nil {
		return Identity{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, LoginPath, "", body)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Identity{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxDocumentBytes)).Decode(&loginResp); err != nil {
		return Identity{}, fmt.Errorf("%w: login response: %w", ErrRemoteParse, err)
	}
	if loginResp.Token == "" || loginResp.UserID == "" {
		return Identity{}, fmt.Errorf("%w: login response without token", ErrRemoteParse)
	}

	return Identity{
		UserID:   loginResp.UserID,
		Username: username,
		Token:    loginResp.Token,
	}, nil
}

func (c *Client) Logout(ctx context.Context, id Identity) error {
	if !id.Present() {
		return nil
	}
	resp, err := c.do(ctx, http.MethodGet, LogoutPath, id.Token, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnreachable, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
