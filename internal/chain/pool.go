package chain

import (
	"context"
	"sync"

	"vaultScope/internal/errs"
)

// Pool lazily dials and caches one Client per chain. Clients are shared
// across requests; dialing happens at most once per chain.
type Pool struct {
	mu      sync.Mutex
	urls    map[string]string
	clients map[string]*Client
}

// NewPool builds a Pool from chain id -> RPC URL.
func NewPool(urls map[string]string) *Pool {
	return &Pool{
		urls:    urls,
		clients: make(map[string]*Client),
	}
}

// Get returns the client for chainID, dialing on first use. A chain with no
// configured RPC URL is a NotFoundError.
func (p *Pool) Get(ctx context.Context, chainID string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[chainID]; ok {
		return client, nil
	}

	url, ok := p.urls[chainID]
	if !ok || url == "" {
		return nil, errs.NotFound("rpc url for chain", chainID)
	}

	client, err := NewClient(ctx, url)
	if err != nil {
		return nil, err
	}
	p.clients[chainID] = client
	return client, nil
}

// Close closes every dialed client.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, client := range p.clients {
		client.Close()
	}
	p.clients = make(map[string]*Client)
}
