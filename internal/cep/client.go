// Package cep resolves Brazilian postal codes to street addresses through a
// ViaCEP-shaped API. Lookups are cached in Redis; the external service is a
// collaborator contract, nothing more.
package cep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/redisx"
)

var (
	ErrInvalidCEP = errors.New("invalid cep")
	ErrNotFound   = errors.New("cep not found")
)

type Address struct {
	CEP      string `json:"cep"`
	Street   string `json:"street"`
	District string `json:"district"`
	City     string `json:"city"`
	State    string `json:"state"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	RDB     *redis.Client // optional cache
	Logger  *zap.Logger
}

func NewClient(baseURL string, rdb *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		RDB:     rdb,
		Logger:  logger,
	}
}

type viaCEPResponse struct {
	CEP      string `json:"cep"`
	Street   string `json:"logradouro"`
	District string `json:"bairro"`
	City     string `json:"localidade"`
	State    string `json:"uf"`
	Erro     bool   `json:"erro,omitempty"`
}

func (c *Client) Lookup(ctx context.Context, code string) (*Address, error) {
	digits := normalize(code)
	if len(digits) != 8 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCEP, code)
	}

	if addr := c.cached(ctx, digits); addr != nil {
		return addr, nil
	}

	url := fmt.Sprintf("%s/ws/%s/json/", c.BaseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cep lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cep lookup: status %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cep lookup: decode: %w", err)
	}
	if body.Erro {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digits)
	}

	addr := &Address{
		CEP:      body.CEP,
		Street:   body.Street,
		District: body.District,
		City:     body.City,
		State:    body.State,
	}
	c.cache(ctx, digits, addr)
	return addr, nil
}

func (c *Client) cached(ctx context.Context, digits string) *Address {
	if c.RDB == nil {
		return nil
	}
	data, err := c.RDB.Get(ctx, fmt.Sprintf(redisx.KeyCEP, digits)).Result()
	if err != nil {
		return nil
	}
	var addr Address
	if err := json.Unmarshal([]byte(data), &addr); err != nil {
		c.Logger.Warn("bad cep cache entry", zap.String("cep", digits), zap.Error(err))
		return nil
	}
	return &addr
}

func (c *Client) cache(ctx context.Context, digits string, addr *Address) {
	if c.RDB == nil {
		return
	}
	data, err := json.Marshal(addr)
	if err != nil {
		return
	}
	if err := c.RDB.Set(ctx, fmt.Sprintf(redisx.KeyCEP, digits), data, redisx.TTLCEP).Err(); err != nil {
		c.Logger.Warn("cep cache write failed", zap.String("cep", digits), zap.Error(err))
	}
}

func normalize(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
