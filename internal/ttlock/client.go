package ttlock

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openhours/doorkeeper/internal/domain"
)

// DefaultBaseURL is the TTLock EU cloud endpoint.
const DefaultBaseURL = "https://euapi.ttlock.com"

// Credentials identify the vendor application and the lock owner account.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Result is the normalized vendor response for a command. ErrCode 0 means
// success; anything else carries a vendor error message.
type Result struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.ErrCode == 0 }

// Client talks to the TTLock cloud API. All requests are form-encoded POSTs
// per the vendor contract.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	logger     *slog.Logger
}

func NewClient(creds Credentials, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    DefaultBaseURL,
		creds:      creds,
		logger:     logger.With("component", "ttlock"),
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests and
// for the non-EU clusters.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// Authenticate fetches an access token for the owner account. The vendor
// expects the password as an MD5 hex digest.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	sum := md5.Sum([]byte(c.creds.Password))
	form := url.Values{
		"username":     {c.creds.Username},
		"password":     {hex.EncodeToString(sum[:])},
		"clientId":     {c.creds.ClientID},
		"clientSecret": {c.creds.ClientSecret},
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ErrMsg      string `json:"errmsg"`
	}
	if err := c.postForm(ctx, "/oauth2/token", form, &body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		if body.ErrMsg != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrNoAccessToken, body.ErrMsg)
		}
		return "", domain.ErrNoAccessToken
	}
	c.logger.Info("access token obtained")
	return body.AccessToken, nil
}

// Unlock opens the lock through the cloud.
func (c *Client) Unlock(ctx context.Context, token string, lockID int64) (Result, error) {
	return c.command(ctx, "/v3/lock/unlock", token, lockID)
}

// Lock closes the lock through the cloud.
func (c *Client) Lock(ctx context.Context, token string, lockID int64) (Result, error) {
	return c.command(ctx, "/v3/lock/lock", token, lockID)
}

func (c *Client) command(ctx context.Context, path, token string, lockID int64) (Result, error) {
	form := url.Values{
		"clientId":    {c.creds.ClientID},
		"accessToken": {token},
		"lockId":      {strconv.FormatInt(lockID, 10)},
		"date":        {millis()},
	}
	var res Result
	if err := c.postForm(ctx, path, form, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// ListLocks returns the locks visible to the owner account. Used at startup
// to resolve a default lock id when none is configured.
func (c *Client) ListLocks(ctx context.Context, token string) ([]domain.Lock, error) {
	form := url.Values{
		"clientId":    {c.creds.ClientID},
		"accessToken": {token},
		"pageNo":      {"1"},
		"pageSize":    {"20"},
		"date":        {millis()},
	}
	var body struct {
		List   []domain.Lock `json:"list"`
		ErrMsg string        `json:"errmsg"`
	}
	if err := c.postForm(ctx, "/v3/lock/list", form, &body); err != nil {
		return nil, err
	}
	return body.List, nil
}

// QueryStatus reports the lock state: 1 locked, 2 unlocked. Requires a
// gateway and a lock model that supports status queries.
func (c *Client) QueryStatus(ctx context.Context, token string, lockID int64) (int, error) {
	form := url.Values{
		"clientId":    {c.creds.ClientID},
		"accessToken": {token},
		"lockId":      {strconv.FormatInt(lockID, 10)},
		"date":        {millis()},
	}
	var body struct {
		Result
		LockStatus int `json:"lockStatus"`
	}
	if err := c.postForm(ctx, "/v3/lock/queryStatus", form, &body); err != nil {
		return 0, err
	}
	if !body.OK() {
		return 0, fmt.Errorf("query status: %s (code %d)", body.ErrMsg, body.ErrCode)
	}
	return body.LockStatus, nil
}

// ResolveLockID returns the configured lock id or, when none is set, the
// first lock listed for the account.
func (c *Client) ResolveLockID(ctx context.Context, token string, configured int64) (int64, error) {
	if configured != 0 {
		c.logger.Info("using configured lock id", "lock_id", configured)
		return configured, nil
	}
	locks, err := c.ListLocks(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("list locks: %w", err)
	}
	if len(locks) == 0 {
		return 0, domain.ErrLockNotFound
	}
	c.logger.Info("lock id resolved from account list", "lock_id", locks[0].ID, "name", locks[0].Name)
	return locks[0].ID, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func millis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
