// Package remote implements storage.Storage against the /v1/storage routes
// of another marketcache server, letting several processes share one
// partition.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/adeilh/marketcache/httpx"
	"github.com/adeilh/marketcache/storage"
)

const (
	itemPath = "/v1/storage/item"
	keysPath = "/v1/storage/keys"
)

type Store struct {
	client *httpx.Client
}

// NewStore returns a store talking to the server at baseURL.
func NewStore(baseURL string, opts ...httpx.ClientOption) (*Store, error) {
	if baseURL == "" {
		return nil, errors.New("remote: base url is required")
	}
	opts = append([]httpx.ClientOption{httpx.WithBaseURL(baseURL)}, opts...)
	return &Store{client: httpx.NewClient(opts...)}, nil
}

type itemBody struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

type keysBody struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

func (s *Store) GetItem(ctx context.Context, key string) (string, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return "", err
	}
	var out itemBody
	if _, err := s.client.Get(ctx, itemPath, &out, withKey(key)); err != nil {
		return "", translateError("get", err)
	}
	return out.Value, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := storage.CtxErr(ctx); err != nil {
		return err
	}
	if _, err := s.client.Put(ctx, itemPath, itemBody{Value: value}, nil, withKey(key)); err != nil {
		return translateError("set", err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := storage.CtxErr(ctx); err != nil {
		return err
	}
	if _, err := s.client.Delete(ctx, itemPath, nil, withKey(key)); err != nil {
		return translateError("remove", err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	body, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}
	return body.Keys, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	body, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}
	return body.Count, nil
}

func (s *Store) keys(ctx context.Context) (keysBody, error) {
	if err := storage.CtxErr(ctx); err != nil {
		return keysBody{}, err
	}
	var out keysBody
	if _, err := s.client.Get(ctx, keysPath, &out); err != nil {
		return keysBody{}, translateError("keys", err)
	}
	return out, nil
}

func withKey(key string) httpx.RequestOption {
	return httpx.WithQuery(map[string]string{"key": key})
}

func translateError(op string, err error) error {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case httpx.StatusNotFound:
			return storage.ErrNotFound
		case httpx.StatusInsufficientStorage:
			return storage.ErrQuotaExceeded
		}
	}
	return fmt.Errorf("remote: %s: %w", op, err)
}
