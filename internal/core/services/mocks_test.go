package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
)

// mockExchanger implements driven.GrantExchanger for testing.
// When gate is non-nil, exchanges signal started and block until gate is closed.
type mockExchanger struct {
	mu sync.Mutex

	exchangeGrant *domain.TokenGrant
	exchangeErr   error
	refreshGrant  *domain.TokenGrant
	refreshErr    error
	revokeErr     error

	codes         []string
	refreshTokens []string
	revokes       int

	gate    chan struct{}
	started chan struct{}
}

var _ driven.GrantExchanger = (*mockExchanger)(nil)

func (m *mockExchanger) ExchangeCode(_ context.Context, code string) (*domain.TokenGrant, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, code)
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return copyGrant(m.exchangeGrant), nil
}

func (m *mockExchanger) RefreshGrant(_ context.Context, refreshToken string) (*domain.TokenGrant, error) {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens = append(m.refreshTokens, refreshToken)
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return copyGrant(m.refreshGrant), nil
}

func (m *mockExchanger) RevokeSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokes++
	return m.revokeErr
}

func (m *mockExchanger) wait() {
	m.mu.Lock()
	gate, started := m.gate, m.started
	m.mu.Unlock()
	if gate == nil {
		return
	}
	if started != nil {
		started <- struct{}{}
	}
	<-gate
}

func (m *mockExchanger) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.refreshTokens)
}

func (m *mockExchanger) codeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

func copyGrant(g *domain.TokenGrant) *domain.TokenGrant {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}
