package portfolio

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/rs/zerolog/log"
)

// Book gives access to the portfolios of one user, keeping the store in sync.
//
// Operations on a portfolio hold that portfolio lock from the ledger read to the file
// append, so a Book can be shared by concurrent callers.
type Book struct {
	store  *Store
	prices *Pricer
	user   *User

	mu    sync.Mutex // guards user record changes and locks
	locks map[int]*sync.Mutex
}

// OpenBook loads a user and all its ledgers.
func OpenBook(ctx context.Context, store *Store, market Market, userID int) (*Book, error) {
	prices := NewPricer(market)
	u, err := store.LoadUser(ctx, userID, prices)
	if err != nil {
		return nil, err
	}
	return &Book{store: store, prices: prices, user: u, locks: make(map[int]*sync.Mutex)}, nil
}

// User returns the loaded user. Callers must not modify it.
func (b *Book) User() *User { return b.user }

// Prices returns the pricer used by the book.
func (b *Book) Prices() *Pricer { return b.prices }

// lock finds the portfolio and locks it. Call the returned func to unlock.
func (b *Book) lock(id int) (*Portfolio, func(), error) {
	b.mu.Lock()
	p, err := b.user.Portfolio(id)
	if err != nil {
		b.mu.Unlock()
		return nil, nil, err
	}
	m, ok := b.locks[id]
	if !ok {
		m = new(sync.Mutex)
		b.locks[id] = m
	}
	b.mu.Unlock()
	m.Lock()
	return p, m.Unlock, nil
}

// SetCommission changes the user default commission.
func (b *Book) SetCommission(c Money) error {
	if c.IsNegative() {
		return ErrNegativeCommission
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.user.Commission
	b.user.Commission = c
	if err := b.store.SaveUser(b.user); err != nil {
		b.user.Commission = old
		return err
	}
	return nil
}

// CreateRigidPortfolio creates a portfolio with a fixed composition.
func (b *Book) CreateRigidPortfolio(ctx context.Context, name string, stocks []Stock) (*Portfolio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.CreateRigidPortfolio(ctx, b.user, name, stocks, b.prices)
}

// CreateFlexiblePortfolio creates a portfolio with an empty ledger.
func (b *Book) CreateFlexiblePortfolio(name string) (*Portfolio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.CreateFlexiblePortfolio(b.user, name)
}

// Record validates and appends a transaction to a flexible portfolio, then appends it
// to the ledger file. Nothing changes if either step fails.
func (b *Book) Record(ctx context.Context, portfolioID int, tx Transaction) error {
	p, unlock, err := b.lock(portfolioID)
	if err != nil {
		return err
	}
	defer unlock()
	return b.commit(ctx, p, tx)
}

// commit appends txs to a copy of the ledger, writes them, then swaps the copy in.
func (b *Book) commit(ctx context.Context, p *Portfolio, txs ...Transaction) error {
	l, err := p.Ledger()
	if err != nil {
		return err
	}
	next := l.Clone()
	if err := next.AppendAll(ctx, b.prices, txs...); err != nil {
		return err
	}
	if err := b.store.AppendToLedgerFile(b.user, p, txs...); err != nil {
		return err
	}
	p.ledger = next
	return nil
}

// ApplyPlan builds a DCA plan for a flexible portfolio, records all its transactions,
// and keeps a trace of it in the user record.
func (b *Book) ApplyPlan(ctx context.Context, portfolioID int, spec PlanSpec) (PlanRecord, []Transaction, error) {
	p, unlock, err := b.lock(portfolioID)
	if err != nil {
		return PlanRecord{}, nil, err
	}
	defer unlock()

	txs, err := p.BuildPlan(ctx, b.prices, spec)
	if err != nil {
		return PlanRecord{}, nil, err
	}
	if err := b.commit(ctx, p, txs...); err != nil {
		return PlanRecord{}, nil, err
	}

	rec := NewPlanRecord(p.ID, spec, len(txs))
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user.Plans = append(b.user.Plans, rec)
	if err := b.store.SaveUser(b.user); err != nil {
		// the ledger is already written, the plan trace is only informative
		log.Warn().Err(err).Stringer("plan", rec.ID).Msg("could not save plan record")
		return rec, txs, fmt.Errorf("plan %s applied but not recorded: %w", rec.ID, err)
	}
	log.Debug().Stringer("plan", rec.ID).Int("portfolio", p.ID).Int("transactions", len(txs)).Msg("plan applied")
	return rec, txs, nil
}

// Composition returns the holdings of a portfolio on day.
func (b *Book) Composition(portfolioID int, day Date) (Composition, error) {
	p, unlock, err := b.lock(portfolioID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return maps.Clone(p.Holdings(day)), nil
}

// Transactions returns a copy of the ledger of a flexible portfolio.
func (b *Book) Transactions(portfolioID int) ([]Transaction, error) {
	p, unlock, err := b.lock(portfolioID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	l, err := p.Ledger()
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, 0, l.Len())
	for _, tx := range l.Transactions() {
		txs = append(txs, tx)
	}
	return txs, nil
}

// Value returns the market value of a portfolio on day.
func (b *Book) Value(ctx context.Context, portfolioID int, day Date) (Money, error) {
	p, unlock, err := b.lock(portfolioID)
	if err != nil {
		return Money{}, err
	}
	defer unlock()
	return p.ValueAsOf(ctx, b.prices, day)
}

// CostBasis returns the money committed to a portfolio up to day.
func (b *Book) CostBasis(ctx context.Context, portfolioID int, day Date) (Money, error) {
	p, unlock, err := b.lock(portfolioID)
	if err != nil {
		return Money{}, err
	}
	defer unlock()
	return p.CostBasisAsOf(ctx, b.prices, day)
}

// Performance samples the value of a portfolio over r.
func (b *Book) Performance(ctx context.Context, portfolioID int, r Range) (*Performance, error) {
	p, unlock, err := b.lock(portfolioID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return p.Sample(ctx, b.prices, r)
}
