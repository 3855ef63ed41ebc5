package portfolio

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// User owns portfolios. Portfolios live and die with their user record.
type User struct {
	ID         int
	Name       string
	Commission Money // default commission charged per transaction
	Portfolios []*Portfolio
	Plans      []PlanRecord // applied DCA plans

	nextPortfolioID int
}

// NewUser creates a user without portfolios.
func NewUser(id int, name string, commission Money) *User {
	return &User{ID: id, Name: name, Commission: commission, nextPortfolioID: 1}
}

// Portfolio returns the portfolio with the given id.
func (u *User) Portfolio(id int) (*Portfolio, error) {
	for _, p := range u.Portfolios {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("user %d portfolio %d: %w", u.ID, id, ErrPortfolioNotFound)
}

// FindPortfolio returns the portfolio whose name matches, ignoring case.
func (u *User) FindPortfolio(name string) (*Portfolio, error) {
	for _, p := range u.Portfolios {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("user %d portfolio %q: %w", u.ID, name, ErrPortfolioNotFound)
}

// AddRigid adds a rigid portfolio holding stocks. Ids are never reused.
func (u *User) AddRigid(name string, stocks []Stock) (*Portfolio, error) {
	for _, s := range stocks {
		if strings.TrimSpace(s.Ticker) == "" {
			return nil, ErrUnknownTicker
		}
		if s.Quantity.IsNegative() || !s.Quantity.IsWhole() {
			return nil, fmt.Errorf("%w: %s %s", ErrNonPositiveQuantity, s.Quantity, s.Ticker)
		}
	}
	p := &Portfolio{ID: u.issueID(), Name: name, Kind: Rigid, Stocks: stocks}
	u.Portfolios = append(u.Portfolios, p)
	return p, nil
}

// AddFlexible adds a flexible portfolio with an empty ledger.
func (u *User) AddFlexible(name string) *Portfolio {
	id := u.issueID()
	p := &Portfolio{ID: id, Name: name, Kind: Flexible, LedgerFile: fmt.Sprintf("%d.csv", id), ledger: NewLedger()}
	u.Portfolios = append(u.Portfolios, p)
	return p
}

// dropNewest removes p, the portfolio added last, and gives its id back.
func (u *User) dropNewest(p *Portfolio) {
	if n := len(u.Portfolios); n > 0 && u.Portfolios[n-1] == p {
		u.Portfolios = u.Portfolios[:n-1]
		if u.nextPortfolioID == p.ID+1 {
			u.nextPortfolioID = p.ID
		}
	}
}

func (u *User) issueID() int {
	if u.nextPortfolioID < 1 {
		u.nextPortfolioID = 1
	}
	id := u.nextPortfolioID
	u.nextPortfolioID++
	return id
}

type rigidRecord struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Stocks []Stock `json:"stocks"`
}

type flexibleRecord struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Ledger string `json:"ledger"`
}

// userRecord is the persisted form of a User.
type userRecord struct {
	ID              int              `json:"id"`
	Name            string           `json:"name"`
	Commission      Money            `json:"commission"`
	NextPortfolioID int              `json:"nextPortfolio"`
	Rigid           []rigidRecord    `json:"rigid"`
	Flexible        []flexibleRecord `json:"flexible"`
	Plans           []PlanRecord     `json:"plans,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (u *User) MarshalJSON() ([]byte, error) {
	rec := userRecord{
		ID:              u.ID,
		Name:            u.Name,
		Commission:      u.Commission,
		NextPortfolioID: u.nextPortfolioID,
		Rigid:           []rigidRecord{},
		Flexible:        []flexibleRecord{},
		Plans:           u.Plans,
	}
	for _, p := range u.Portfolios {
		switch p.Kind {
		case Rigid:
			rec.Rigid = append(rec.Rigid, rigidRecord{ID: p.ID, Name: p.Name, Stocks: p.Stocks})
		case Flexible:
			rec.Flexible = append(rec.Flexible, flexibleRecord{ID: p.ID, Name: p.Name, Ledger: p.LedgerFile})
		}
	}
	return json.Marshal(rec)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
//
// Flexible portfolios come back without their ledger, see Store.LoadUser.
func (u *User) UnmarshalJSON(b []byte) error {
	var rec userRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	*u = User{ID: rec.ID, Name: rec.Name, Commission: rec.Commission, Plans: rec.Plans, nextPortfolioID: rec.NextPortfolioID}

	seen := make(map[int]bool)
	add := func(p *Portfolio) error {
		if seen[p.ID] {
			return fmt.Errorf("duplicate portfolio id %d", p.ID)
		}
		seen[p.ID] = true
		u.Portfolios = append(u.Portfolios, p)
		if p.ID >= u.nextPortfolioID {
			u.nextPortfolioID = p.ID + 1
		}
		return nil
	}
	for _, r := range rec.Rigid {
		if err := add(&Portfolio{ID: r.ID, Name: r.Name, Kind: Rigid, Stocks: r.Stocks}); err != nil {
			return err
		}
	}
	for _, r := range rec.Flexible {
		if r.Ledger == "" {
			return fmt.Errorf("flexible portfolio %d has no ledger reference", r.ID)
		}
		if err := add(&Portfolio{ID: r.ID, Name: r.Name, Kind: Flexible, LedgerFile: r.Ledger}); err != nil {
			return err
		}
	}
	if u.nextPortfolioID < 1 {
		u.nextPortfolioID = 1
	}
	slices.SortFunc(u.Portfolios, func(a, b *Portfolio) int { return cmp.Compare(a.ID, b.ID) })
	return nil
}
