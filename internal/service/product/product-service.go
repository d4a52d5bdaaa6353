package product

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"QuoteChat/entity"
	"QuoteChat/internal/lib/sl"
)

// minRefreshInterval bounds how often an unknown id triggers a remote reload.
const minRefreshInterval = 30 * time.Second

type Options struct {
	Products []entity.Product
	BaseURL  string
	Login    string
	Password string
	TTL      time.Duration
}

// Service resolves product display names. Configured products are always
// known; when BaseURL is set the remote catalog is cached and reloaded after
// TTL or on a miss.
type Service struct {
	static   map[int64]string
	login    string
	password string
	baseURL  string
	ttl      time.Duration
	client   *http.Client
	log      *slog.Logger

	mu        sync.Mutex
	remote    map[int64]string
	fetchedAt time.Time
}

func NewProductService(opts Options, logger *slog.Logger) *Service {
	s := &Service{
		static:   make(map[int64]string, len(opts.Products)),
		login:    opts.Login,
		password: opts.Password,
		baseURL:  opts.BaseURL,
		ttl:      opts.TTL,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      logger.With(sl.Module("prod service")),
	}
	for _, p := range opts.Products {
		s.static[p.ID] = p.Name
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	return s
}

func (r *Service) ProductName(ctx context.Context, productID int64) (string, error) {
	if name, ok := r.static[productID]; ok {
		return name, nil
	}
	if r.baseURL == "" {
		return "", fmt.Errorf("product %d: %w", productID, entity.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.remote[productID]
	age := time.Since(r.fetchedAt)
	if ok && age < r.ttl {
		return name, nil
	}
	if age >= minRefreshInterval {
		if err := r.refresh(ctx); err != nil {
			if ok {
				// stale but known beats failing the request
				r.log.Warn("refresh catalog", sl.Err(err))
				return name, nil
			}
			return "", err
		}
		name, ok = r.remote[productID]
	}
	if !ok {
		return "", fmt.Errorf("product %d: %w", productID, entity.ErrNotFound)
	}
	return name, nil
}

// refresh must be called with mu held.
func (r *Service) refresh(ctx context.Context) error {
	products, err := r.GetAvailableProducts(ctx)
	if err != nil {
		return err
	}
	remote := make(map[int64]string, len(products))
	for _, p := range products {
		remote[p.ID] = p.Name
	}
	r.remote = remote
	r.fetchedAt = time.Now()
	return nil
}

func (r *Service) getBase64Auth() string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", r.login, r.password)))
}

func (r *Service) GetAvailableProducts(ctx context.Context) ([]entity.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	if r.login != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Basic %s", r.getBase64Auth()))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	response, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}

	if !response.Success {
		return nil, fmt.Errorf("response indicated failure: %s", response.Message)
	}

	r.log.With(
		slog.Int("size", len(response.Products)),
	).Debug("all products")

	return response.Products, nil
}
