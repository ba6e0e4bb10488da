// Package api implements the HTTP client for the remote storefront service.
// Failures are mapped into the error taxonomy here so the stores above never
// inspect HTTP status codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/petalworks/storefront-core/pkg/errors"
	"github.com/petalworks/storefront-core/pkg/logger"
	"github.com/petalworks/storefront-core/pkg/types"
)

// LoginResult is the token pair plus profile returned by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Profile      types.Profile
}

// Client talks to the remote catalog/order service.
type Client struct {
	baseURL   string
	http      *http.Client
	log       *logger.Logger
	userAgent string
}

// Params bundles the dependencies required to build an API client.
type Params struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *logger.Logger
	UserAgent  string
}

// NewClient constructs a client for the given base URL.
func NewClient(params Params) (*Client, error) {
	if strings.TrimSpace(params.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	userAgent := params.UserAgent
	if userAgent == "" {
		userAgent = "storefront-core"
	}
	return &Client{
		baseURL:   strings.TrimRight(params.BaseURL, "/"),
		http:      httpClient,
		log:       params.Logger,
		userAgent: userAgent,
	}, nil
}

// Login exchanges credentials for a token pair and the customer profile.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: strings.ToLower(email), Password: password}, "")
	if err != nil {
		return LoginResult{}, err
	}
	switch {
	case resp.status == http.StatusOK:
		var payload loginResponse
		if err := json.Unmarshal(resp.body, &payload); err != nil {
			return LoginResult{}, pkgerrors.Wrap(pkgerrors.CodeServerError, err, "decoding login response")
		}
		return LoginResult{
			AccessToken:  payload.Access,
			RefreshToken: payload.Refresh,
			Profile:      payload.Client.toProfile(),
		}, nil
	case resp.status >= 500:
		return LoginResult{}, resp.serverError("login")
	default:
		return LoginResult{}, pkgerrors.New(pkgerrors.CodeInvalidCredentials, "login rejected")
	}
}

// Refresh exchanges the refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/token/refresh", refreshRequest{Refresh: refreshToken}, "")
	if err != nil {
		return "", err
	}
	switch {
	case resp.status == http.StatusOK:
		var payload refreshResponse
		if err := json.Unmarshal(resp.body, &payload); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeServerError, err, "decoding refresh response")
		}
		return payload.Access, nil
	case resp.status >= 500:
		return "", resp.serverError("token refresh")
	default:
		return "", pkgerrors.New(pkgerrors.CodeSessionExpired, "refresh token rejected")
	}
}

// FetchCatalog retrieves the full product and category list.
func (c *Client) FetchCatalog(ctx context.Context) (types.CatalogSnapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, "/flowers", nil, "")
	if err != nil {
		return types.CatalogSnapshot{}, err
	}
	if resp.status != http.StatusOK {
		return types.CatalogSnapshot{}, resp.serverError("catalog fetch")
	}
	var payload catalogResponse
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return types.CatalogSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeServerError, err, "decoding catalog response")
	}
	return payload.toSnapshot(), nil
}

// SubmitOrder posts the finalized order with the caller's access token.
func (c *Client) SubmitOrder(ctx context.Context, order types.Order, accessToken string) (types.OrderConfirmation, error) {
	resp, err := c.do(ctx, http.MethodPost, "/orders", orderRequestFrom(order), accessToken)
	if err != nil {
		return types.OrderConfirmation{}, err
	}
	switch {
	case resp.status == http.StatusOK || resp.status == http.StatusCreated:
		var payload orderResponse
		if err := json.Unmarshal(resp.body, &payload); err != nil {
			return types.OrderConfirmation{}, pkgerrors.Wrap(pkgerrors.CodeServerError, err, "decoding order response")
		}
		confirmation, err := payload.toConfirmation()
		if err != nil {
			return types.OrderConfirmation{}, pkgerrors.Wrap(pkgerrors.CodeServerError, err, "decoding order response")
		}
		return confirmation, nil
	case resp.status >= 500:
		return types.OrderConfirmation{}, resp.serverError("order submission")
	default:
		message := resp.errorText()
		if message == "" {
			message = "order rejected"
		}
		return types.OrderConfirmation{}, pkgerrors.New(pkgerrors.CodeServerRejected, message).
			WithDetails(map[string]any{"message": message})
	}
}

// Register creates a new customer account. It does not authenticate; the
// caller is expected to log in afterwards.
func (c *Client) Register(ctx context.Context, input RegisterInput) (types.Profile, error) {
	input.Email = strings.ToLower(input.Email)
	resp, err := c.do(ctx, http.MethodPost, "/register", input, "")
	if err != nil {
		return types.Profile{}, err
	}
	switch {
	case resp.status == http.StatusOK || resp.status == http.StatusCreated:
		var payload profilePayload
		if err := json.Unmarshal(resp.body, &payload); err != nil {
			return types.Profile{}, pkgerrors.Wrap(pkgerrors.CodeServerError, err, "decoding register response")
		}
		return payload.toProfile(), nil
	case resp.status >= 500:
		return types.Profile{}, resp.serverError("registration")
	default:
		message := resp.errorText()
		if message == "" {
			message = "user already exists"
		}
		return types.Profile{}, pkgerrors.New(pkgerrors.CodeValidation, message)
	}
}

// UpdateProfile posts a profile patch and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, profileID string, patch types.ProfilePatch, accessToken string) (types.Profile, error) {
	resp, err := c.do(ctx, http.MethodPost, "/profile/"+profileID, patch, accessToken)
	if err != nil {
		return types.Profile{}, err
	}
	switch {
	case resp.status == http.StatusOK:
		var payload profilePayload
		if err := json.Unmarshal(resp.body, &payload); err != nil {
			return types.Profile{}, pkgerrors.Wrap(pkgerrors.CodeServerError, err, "decoding profile response")
		}
		return payload.toProfile(), nil
	case resp.status == http.StatusUnauthorized:
		return types.Profile{}, pkgerrors.New(pkgerrors.CodeSessionExpired, "profile update unauthorized")
	case resp.status >= 500:
		return types.Profile{}, resp.serverError("profile update")
	default:
		return types.Profile{}, pkgerrors.New(pkgerrors.CodeValidation, "profile update rejected")
	}
}

// RequestPasswordReset asks the service to email a reset code.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	resp, err := c.do(ctx, http.MethodPost, "/password/reset", passwordResetRequest{Email: strings.ToLower(email)}, "")
	if err != nil {
		return err
	}
	switch {
	case resp.status == http.StatusOK:
		return nil
	case resp.status >= 500:
		return resp.serverError("password reset request")
	default:
		return pkgerrors.New(pkgerrors.CodeNotFound, "no account for that email")
	}
}

// ConfirmPasswordReset verifies the emailed code and sets the new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	body := passwordVerifyRequest{Email: strings.ToLower(email), Code: code, NewPassword: newPassword}
	resp, err := c.do(ctx, http.MethodPost, "/password/verify", body, "")
	if err != nil {
		return err
	}
	switch {
	case resp.status == http.StatusOK:
		return nil
	case resp.status >= 500:
		return resp.serverError("password reset confirmation")
	default:
		message := resp.errorText()
		if message == "" {
			message = "invalid reset code"
		}
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	}
}

type response struct {
	status int
	body   []byte
}

func (r response) errorText() string {
	var payload errorResponse
	if err := json.Unmarshal(r.body, &payload); err != nil {
		return ""
	}
	return payload.text()
}

func (r response) serverError(op string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeServerError, fmt.Sprintf("%s failed with status %d", op, r.status))
}

func (c *Client) do(ctx context.Context, method, path string, body any, accessToken string) (response, error) {
	requestID := uuid.NewString()
	ctx = c.log.WithRequestID(ctx, requestID)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return response{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return response{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error(ctx, "request failed: "+method+" "+path, err)
		return response{}, pkgerrors.Wrap(pkgerrors.CodeNetworkFailure, err, "calling "+path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, pkgerrors.Wrap(pkgerrors.CodeNetworkFailure, err, "reading response from "+path)
	}

	c.log.Debug(c.log.WithField(ctx, "status", resp.StatusCode), method+" "+path)
	return response{status: resp.StatusCode, body: raw}, nil
}
