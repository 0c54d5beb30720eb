// Package address looks up Brazilian postal codes (CEP) through a
// ViaCEP-compatible endpoint and caches the answers.
package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tesouraria/internal/cache"
	applog "tesouraria/internal/log"
)

var (
	ErrInvalidCEP = errors.New("invalid CEP")
	ErrNotFound   = errors.New("CEP not found")
)

// Address is the normalized result of a lookup.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type viaCEPResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        any    `json:"erro"`
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.LRUCache[Address]
	logger  *applog.Logger
}

// NewClient returns a client for baseURL (for example https://viacep.com.br/ws)
// caching up to 1000 answers for ttl.
func NewClient(baseURL string, ttl time.Duration, httpClient *http.Client, logger *applog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		cache:   cache.NewLRUCache[Address](1000, ttl),
		logger:  logger.WithComponent(applog.ComponentAddress),
	}
}

// Cache exposes the lookup cache so it can be registered for cleanup.
func (c *Client) Cache() *cache.LRUCache[Address] {
	return c.cache
}

// NormalizeCEP strips the mask and checks for exactly eight digits.
func NormalizeCEP(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
		default:
			return "", ErrInvalidCEP
		}
	}
	if b.Len() != 8 {
		return "", ErrInvalidCEP
	}
	return b.String(), nil
}

// Lookup resolves cep, answering from the cache when possible.
func (c *Client) Lookup(ctx context.Context, cep string) (Address, error) {
	digits, err := NormalizeCEP(cep)
	if err != nil {
		return Address{}, err
	}
	if addr, ok := c.cache.Get(digits); ok {
		return addr, nil
	}

	url := fmt.Sprintf("%s/%s/json/", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Address{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("lookup CEP %s: %w", digits, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return Address{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Address{}, fmt.Errorf("lookup CEP %s: unexpected status %d", digits, resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, fmt.Errorf("decode CEP response: %w", err)
	}
	// ViaCEP answers 200 with {"erro": true} (or "true") for unknown codes.
	if body.Erro != nil && body.Erro != false {
		return Address{}, ErrNotFound
	}

	addr := Address{
		CEP:          digits,
		Street:       body.Logradouro,
		Complement:   body.Complemento,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}
	c.cache.Set(digits, addr)
	c.logger.DebugContext(ctx, "CEP resolved", "cep", digits, "city", addr.City)
	return addr, nil
}
