package portfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

const userFile = "user.json"

// Store persists users and their ledgers in a folder:
//
//	<root>/<user id>/user.json    the user record
//	<root>/<user id>/<ledger>.csv one ledger file per flexible portfolio
//
// Every rewrite goes to a temporary file that then replaces the original. Ledger files
// are only appended to, except when their rows need to be reordered.
type Store struct {
	root string
	mu   sync.Mutex // serializes user creation
}

// NewStore returns a Store rooted at path.
func NewStore(path string) *Store { return &Store{root: path} }

func (s *Store) userDir(id int) string { return filepath.Join(s.root, strconv.Itoa(id)) }

func (s *Store) userPath(id int) string { return filepath.Join(s.userDir(id), userFile) }

// LedgerPath returns the file of a flexible portfolio ledger. The ledger reference
// must be a plain file name within the user folder.
func (s *Store) LedgerPath(u *User, p *Portfolio) (string, error) {
	if p.Kind != Flexible {
		return "", fmt.Errorf("portfolio %d: %w", p.ID, ErrRigidPortfolio)
	}
	if p.LedgerFile == "" || filepath.Base(p.LedgerFile) != p.LedgerFile || p.LedgerFile == userFile {
		return "", fmt.Errorf("%w: portfolio %d references %q", ErrLedgerDiscrepancy, p.ID, p.LedgerFile)
	}
	return filepath.Join(s.userDir(u.ID), p.LedgerFile), nil
}

// UserIDs lists the users of the store, in increasing order.
func (s *Store) UserIDs() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil || id <= 0 {
			continue
		}
		if _, err := os.Stat(s.userPath(id)); err == nil {
			ids = append(ids, id)
		}
	}
	// ReadDir sorts by name, not by value
	slices.Sort(ids)
	return ids, nil
}

// CreateUser creates and persists a new user. User ids are issued in increasing order.
func (s *Store) CreateUser(name string, commission Money) (*User, error) {
	if commission.IsNegative() {
		return nil, ErrNegativeCommission
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.UserIDs()
	if err != nil {
		return nil, fmt.Errorf("could not list users in %q: %w", s.root, err)
	}
	next := 1
	for _, id := range ids {
		if id >= next {
			next = id + 1
		}
	}
	u := NewUser(next, name, commission)
	if err := s.SaveUser(u); err != nil {
		return nil, err
	}
	log.Debug().Int("user", u.ID).Str("name", name).Msg("user created")
	return u, nil
}

// SaveUser writes the user record, replacing the previous one.
func (s *Store) SaveUser(u *User) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode user %d: %w", u.ID, err)
	}
	if err := os.MkdirAll(s.userDir(u.ID), 0o755); err != nil {
		return fmt.Errorf("could not create directory for user %d: %w", u.ID, err)
	}
	return writeFileAtomic(s.userPath(u.ID), func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// LoadUser reads a user record and the ledger of each of its flexible portfolios.
//
// A missing ledger file is created empty. A ledger whose rows are not chronological,
// or that does not replay, aborts the whole load. Errors are *LoadError.
func (s *Store) LoadUser(ctx context.Context, id int, listings Listings) (*User, error) {
	u, err := s.LoadUserRecord(id)
	if err != nil {
		return nil, err
	}
	path := s.userPath(id)
	refs := make(map[string]int)
	for _, p := range u.Portfolios {
		if p.Kind != Flexible {
			continue
		}
		if other, ok := refs[p.LedgerFile]; ok {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: portfolios %d and %d share ledger %q", ErrLedgerDiscrepancy, other, p.ID, p.LedgerFile)}
		}
		refs[p.LedgerFile] = p.ID
		l, err := s.LoadLedger(ctx, u, p, listings)
		if err != nil {
			return nil, err
		}
		p.ledger = l
	}
	return u, nil
}

// LoadUserRecord reads a user record only. Flexible portfolios have empty ledgers.
func (s *Store) LoadUserRecord(id int) (*User, error) {
	path := s.userPath(id)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("user %d: %w", id, ErrUserNotFound)}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	u := new(User)
	if err := json.Unmarshal(data, u); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if u.ID != id {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("record belongs to user %d", u.ID)}
	}
	return u, nil
}

// LoadLedger reads and validates the ledger of a flexible portfolio. A missing ledger
// file is created empty. Errors are *LoadError.
func (s *Store) LoadLedger(ctx context.Context, u *User, p *Portfolio, listings Listings) (*Ledger, error) {
	path, err := s.LedgerPath(u, p)
	if err != nil {
		return nil, &LoadError{Path: s.userPath(u.ID), Err: err}
	}
	txs, err := readLedgerFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Int("user", u.ID).Int("portfolio", p.ID).Str("path", path).Msg("creating missing ledger file")
		if err := writeFileAtomic(path, func(io.Writer) error { return nil }); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		return NewLedger(), nil
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	l, err := NewLedgerFrom(ctx, listings, txs)
	switch {
	case err == nil:
		return l, nil
	case errors.Is(err, ErrLedgerOutOfOrder):
		return nil, &LoadError{Path: path, Err: err}
	default:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %w", ErrLedgerDiscrepancy, err)}
	}
}

// CreateFlexiblePortfolio adds a flexible portfolio to u, creates its empty ledger
// file, then saves the user record.
//
// An existing file with the ledger name is never overwritten: the creation fails with
// ErrLedgerDiscrepancy. On any failure u is left as it was.
func (s *Store) CreateFlexiblePortfolio(u *User, name string) (_ *Portfolio, err error) {
	p := u.AddFlexible(name)
	defer func() {
		if err != nil {
			u.dropNewest(p)
		}
	}()
	path, err := s.LedgerPath(u, p)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: ledger file %q of portfolio %d already exists", ErrLedgerDiscrepancy, path, p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create ledger for portfolio %d: %w", p.ID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("could not create ledger for portfolio %d: %w", p.ID, err)
	}
	if err := s.SaveUser(u); err != nil {
		os.Remove(path)
		return nil, err
	}
	log.Debug().Int("user", u.ID).Int("portfolio", p.ID).Str("ledger", path).Msg("flexible portfolio created")
	return p, nil
}

// CreateRigidPortfolio adds a rigid portfolio to u then saves the user record.
//
// Every ticker must be listed, and acquisition dates must not precede the listing.
func (s *Store) CreateRigidPortfolio(ctx context.Context, u *User, name string, stocks []Stock, listings Listings) (*Portfolio, error) {
	for _, st := range stocks {
		listed, err := listings.ListingDate(ctx, st.Ticker)
		if err != nil {
			return nil, err
		}
		if !st.Date.IsZero() && st.Date.Before(listed) {
			return nil, fmt.Errorf("%w: %s listed on %s", ErrPriorToListing, st.Ticker, listed)
		}
	}
	p, err := u.AddRigid(name, stocks)
	if err != nil {
		return nil, err
	}
	if err := s.SaveUser(u); err != nil {
		u.dropNewest(p)
		return nil, err
	}
	log.Debug().Int("user", u.ID).Int("portfolio", p.ID).Int("stocks", len(stocks)).Msg("rigid portfolio created")
	return p, nil
}

// AppendToLedgerFile adds transactions to the ledger file of p.
//
// The existing rows and txs are merged in chronological order, rows of the same day
// keeping their order, and the whole file is replaced at once.
func (s *Store) AppendToLedgerFile(u *User, p *Portfolio, txs ...Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	path, err := s.LedgerPath(u, p)
	if err != nil {
		return err
	}
	existing, err := readLedgerFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not read ledger %q: %w", path, err)
	}
	all := make([]Transaction, 0, len(existing)+len(txs))
	all = append(all, existing...)
	all = append(all, txs...)
	if !isChronological(all) {
		log.Debug().Str("path", path).Msg("appended rows are out of order, reordering ledger file")
		stableSort(all)
	}
	if err := writeFileAtomic(path, func(w io.Writer) error { return EncodeTransactions(w, all...) }); err != nil {
		return fmt.Errorf("could not append to ledger %q: %w", path, err)
	}
	return nil
}

// SortLedgerFile rewrites the ledger file of p in chronological order. Rows dated the
// same day keep their relative order.
func (s *Store) SortLedgerFile(u *User, p *Portfolio) error {
	path, err := s.LedgerPath(u, p)
	if err != nil {
		return err
	}
	txs, err := readLedgerFile(path)
	if err != nil {
		return fmt.Errorf("could not read ledger %q: %w", path, err)
	}
	if isChronological(txs) {
		return nil
	}
	stableSort(txs)
	if err := writeFileAtomic(path, func(w io.Writer) error { return EncodeTransactions(w, txs...) }); err != nil {
		return fmt.Errorf("could not rewrite ledger %q: %w", path, err)
	}
	log.Debug().Str("path", path).Int("rows", len(txs)).Msg("ledger file reordered")
	return nil
}

func readLedgerFile(path string) ([]Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeLedger(bytes.NewReader(data))
}

// writeFileAtomic writes to a temporary file in the same folder, then renames it to
// path.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if err = write(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
