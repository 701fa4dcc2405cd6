package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
)

// HTTPRemote talks to a ledger_backend over its REST API.
type HTTPRemote struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPRemote creates a Remote for the server at baseURL (scheme and host,
// no trailing slash). token is sent as a bearer token on every request.
func NewHTTPRemote(baseURL, token string, client *http.Client) *HTTPRemote {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPRemote{baseURL: baseURL, token: token, client: client}
}

func (r *HTTPRemote) ownerPath(ownerID string, parts ...string) string {
	p := "/api/v1/owners/" + url.PathEscape(ownerID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends body as JSON and decodes a 2xx response into out. Error bodies are
// mapped back to the engine's sentinel errors by their code.
func (r *HTTPRemote) do(ctx context.Context, method, path, operationID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if operationID != "" {
		req.Header.Set(middleware.IdempotencyKeyHeader, operationID)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
		return nil
	}

	var errRes dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errRes); err != nil || errRes.Code == "" {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	kind := apperrors.FromCode(errRes.Code)
	if errors.Is(kind, apperrors.ErrInternal) {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, errRes.Error)
	}
	return fmt.Errorf("%w: %s", kind, errRes.Error)
}

// Ping checks that the server is reachable and healthy.
func (r *HTTPRemote) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (r *HTTPRemote) entry(ctx context.Context, method, path, operationID string, body any) (*domain.Entry, error) {
	var res dto.EntryResponse
	if err := r.do(ctx, method, path, operationID, body, &res); err != nil {
		return nil, err
	}
	e, err := res.ToDomain()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *HTTPRemote) GetEntry(ctx context.Context, ownerID, entryID string) (*domain.Entry, error) {
	return r.entry(ctx, http.MethodGet, r.ownerPath(ownerID, "entries", entryID), "", nil)
}

func (r *HTTPRemote) CreateEntry(ctx context.Context, req dto.CreateEntryRequest) (*domain.Entry, error) {
	return r.entry(ctx, http.MethodPost, r.ownerPath(req.OwnerID, "entries"), req.OperationID, req)
}

func (r *HTTPRemote) EditEntry(ctx context.Context, req dto.EditEntryRequest) (*domain.Entry, error) {
	return r.entry(ctx, http.MethodPatch, r.ownerPath(req.OwnerID, "entries", req.EntryID), req.OperationID, req)
}

func (r *HTTPRemote) DeleteEntry(ctx context.Context, req dto.DeleteEntryRequest) (*dto.DeleteResult, error) {
	path := r.ownerPath(req.OwnerID, "entries", req.EntryID)
	if req.Scope != "" {
		path += "?scope=" + url.QueryEscape(string(req.Scope))
	}
	var res dto.DeleteResult
	if err := r.do(ctx, http.MethodDelete, path, req.OperationID, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *HTTPRemote) CreateTransfer(ctx context.Context, req dto.CreateTransferRequest) (*domain.TransferPair, error) {
	var res dto.TransferResponse
	if err := r.do(ctx, http.MethodPost, r.ownerPath(req.OwnerID, "transfers"), req.OperationID, req, &res); err != nil {
		return nil, err
	}
	pair, err := res.ToDomain()
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

func (r *HTTPRemote) DeleteTransfer(ctx context.Context, req dto.DeleteTransferRequest) (*dto.DeleteResult, error) {
	var res dto.DeleteResult
	if err := r.do(ctx, http.MethodDelete, r.ownerPath(req.OwnerID, "transfers", req.EntryID), req.OperationID, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *HTTPRemote) CreateSeries(ctx context.Context, req dto.CreateSeriesRequest) (*domain.Series, error) {
	var res dto.SeriesResponse
	if err := r.do(ctx, http.MethodPost, r.ownerPath(req.OwnerID, "series"), req.OperationID, req, &res); err != nil {
		return nil, err
	}
	series, err := res.ToDomain()
	if err != nil {
		return nil, err
	}
	return &series, nil
}

func (r *HTTPRemote) ListBalances(ctx context.Context, ownerID string) (map[string]int64, error) {
	var res dto.AccountBalancesResponse
	if err := r.do(ctx, http.MethodGet, r.ownerPath(ownerID, "balances"), "", nil, &res); err != nil {
		return nil, err
	}
	return res.Map(), nil
}

var (
	_ Remote        = (*HTTPRemote)(nil)
	_ BalanceReader = (*HTTPRemote)(nil)
)
