package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	transactionType = "CustomerPayBillOnline"

	// tokenExpiryMargin keeps a cached token from expiring mid-request.
	tokenExpiryMargin = 60 * time.Second

	maxResponseBytes = 1 << 20
)

// TokenCache stores the access token between requests.
type TokenCache interface {
	GetAccessToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string, ttl time.Duration) error
}

// Config holds the credentials and STK Push settings.
type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	PassKey         string
	CallbackURL     string
	TransactionDesc string
}

// Client talks to the Daraja API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     TokenCache
	now        func() time.Time
}

// NewClient creates a new Client. tokens may be nil, in which case every call
// fetches a fresh token.
func NewClient(cfg Config, httpClient *http.Client, tokens TokenCache) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     tokens,
		now:        time.Now,
	}
}

// STKPushRequest is the push payload sent to the gateway.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the gateway's synchronous answer to a push.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKQueryResponse is the gateway's answer to a status query.
type STKQueryResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// PushParams are the caller-supplied parts of an STK Push.
type PushParams struct {
	Amount           int64
	PhoneNumber      string
	AccountReference string
}

// AccessToken returns a bearer token, from cache when possible.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		// A cache failure only costs an extra token request.
		if token, err := c.tokens.GetAccessToken(ctx); err == nil && token != "" {
			return token, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return "", fmt.Errorf("%w: http %d: %s", ErrAuthFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrAuthFailed, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}

	if c.tokens != nil {
		if seconds, err := strconv.Atoi(tr.ExpiresIn.String()); err == nil {
			if ttl := time.Duration(seconds)*time.Second - tokenExpiryMargin; ttl > 0 {
				_ = c.tokens.SetAccessToken(ctx, tr.AccessToken, ttl)
			}
		}
	}

	return tr.AccessToken, nil
}

// STKPush prompts the member's phone for payment. A response whose
// ResponseCode is not "0" is returned as an *APIError.
func (c *Client) STKPush(ctx context.Context, params PushParams) (*STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(c.now())
	payload := STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            params.Amount,
		PartyA:            params.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       params.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  params.AccountReference,
		TransactionDesc:   c.cfg.TransactionDesc,
	}

	var out STKPushResponse
	if err := c.post(ctx, pushPath, token, payload, &out); err != nil {
		return nil, err
	}

	if out.ResponseCode != "0" {
		return nil, &APIError{StatusCode: http.StatusOK, Code: out.ResponseCode, Message: out.ResponseDescription}
	}
	return &out, nil
}

// QueryStatus asks the gateway for the outcome of a push. ErrStillProcessing
// means the member has not answered yet.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(c.now())
	payload := map[string]string{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var out STKQueryResponse
	if err := c.post(ctx, queryPath, token, payload, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == stillProcessingCode {
			return nil, ErrStillProcessing
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		_ = json.Unmarshal(data, &er)
		if er.ErrorCode == "" {
			er.ErrorCode = strconv.Itoa(resp.StatusCode)
			er.ErrorMessage = string(bytes.TrimSpace(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Code: er.ErrorCode, Message: er.ErrorMessage}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("mpesa: decode response: %w", err)
	}
	return nil
}
