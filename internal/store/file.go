package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gutlog/internal/model"
)

// FileStore keeps every user in one JSON document, {"users": {name: record}}.
// Each write replaces the document with a rename, so an append and its
// stock update land together or not at all.
type FileStore struct {
	mu        sync.Mutex
	path      string
	users     map[string]*model.UserRecord
	recovered error
}

// NewFile opens the JSON document at path. A missing file starts empty.
// A document that cannot be decoded is moved aside to
// <path>.corrupt-<timestamp> and the store starts empty; Recovered then
// reports ErrCorruptStore.
func NewFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, users: make(map[string]*model.UserRecord)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: read %s", path)
	}

	users, err := decodeDocument(data)
	if err == nil {
		s.users = users
		return s, nil
	}

	backup := fmt.Sprintf("%s.corrupt-%s", path, time.Now().Format("20060102-150405"))
	if rerr := os.Rename(path, backup); rerr != nil {
		return nil, eris.Wrapf(rerr, "file: back up corrupt store %s", path)
	}
	zap.L().Warn("file: store was corrupt, reinitialized",
		zap.String("path", path),
		zap.String("backup", backup),
		zap.Error(err),
	)
	s.recovered = eris.Wrapf(ErrCorruptStore, "previous contents saved to %s", backup)
	return s, nil
}

func decodeDocument(data []byte) (map[string]*model.UserRecord, error) {
	var doc struct {
		Users map[string]json.RawMessage `json:"users"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "file: decode document")
	}
	newID := func() string { return uuid.New().String() }

	users := make(map[string]*model.UserRecord, len(doc.Users))
	for name, body := range doc.Users {
		rec, err := model.UpgradeUserRecord(body, newID)
		if err != nil {
			return nil, eris.Wrapf(err, "file: user %s", name)
		}
		if _, _, err := rec.Events(); err != nil {
			return nil, eris.Wrapf(err, "file: user %s", name)
		}
		users[name] = rec
	}
	return users, nil
}

// Recovered returns ErrCorruptStore (wrapped with the backup path) when
// the document had to be reinitialized on open, nil otherwise.
func (s *FileStore) Recovered() error {
	return s.recovered
}

// Migrate makes sure the parent directory exists.
func (s *FileStore) Migrate(_ context.Context) error {
	dir := filepath.Dir(s.path)
	return eris.Wrapf(os.MkdirAll(dir, 0o755), "file: create %s", dir)
}

// Close is a no-op; every write is flushed immediately.
func (s *FileStore) Close() error { return nil }

// mutate applies fn to the user's record and persists the document,
// restoring the previous record if the write fails.
func (s *FileStore) mutate(user string, fn func(rec *model.UserRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.users[user]
	next := model.NewUserRecord()
	if existed {
		cp := *prev
		cp.Meals = append([]model.MealRecord(nil), prev.Meals...)
		cp.Eliminations = append([]model.EliminationRecord(nil), prev.Eliminations...)
		next = &cp
	}
	fn(next)

	s.users[user] = next
	if err := s.flush(); err != nil {
		if existed {
			s.users[user] = prev
		} else {
			delete(s.users, user)
		}
		return err
	}
	return nil
}

func (s *FileStore) flush() error {
	doc := struct {
		Users map[string]*model.UserRecord `json:"users"`
	}{Users: s.users}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return eris.Wrap(err, "file: encode document")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "file: create temp in %s", dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "file: write temp")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "file: sync temp")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "file: close temp")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), s.path), "file: replace %s", s.path)
}

func (s *FileStore) AppendMeal(_ context.Context, user string, meal model.MealEvent, stockAfter float64) error {
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	return s.mutate(user, func(rec *model.UserRecord) {
		rec.Meals = append(rec.Meals, model.NewMealRecord(meal))
		rec.StockG = stockAfter
	})
}

func (s *FileStore) AppendElimination(_ context.Context, user string, elim model.EliminationEvent, stockAfter float64) error {
	if elim.ID == "" {
		elim.ID = uuid.New().String()
	}
	return s.mutate(user, func(rec *model.UserRecord) {
		rec.Eliminations = append(rec.Eliminations, model.NewEliminationRecord(elim))
		rec.StockG = stockAfter
	})
}

func (s *FileStore) record(user string) *model.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[user]
}

func (s *FileStore) Meals(_ context.Context, user string) ([]model.MealEvent, error) {
	rec := s.record(user)
	if rec == nil {
		return nil, nil
	}
	meals, _, err := rec.Events()
	return meals, err
}

func (s *FileStore) Eliminations(_ context.Context, user string) ([]model.EliminationEvent, error) {
	rec := s.record(user)
	if rec == nil {
		return nil, nil
	}
	_, elims, err := rec.Events()
	return elims, err
}

func (s *FileStore) Stock(_ context.Context, user string) (float64, error) {
	rec := s.record(user)
	if rec == nil {
		return 0, nil
	}
	return rec.StockG, nil
}

func (s *FileStore) SetStock(_ context.Context, user string, stock float64) error {
	return s.mutate(user, func(rec *model.UserRecord) {
		rec.StockG = stock
	})
}

func (s *FileStore) Users(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]string, 0, len(s.users))
	for u := range s.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

// ImportHistory appends the whole history in one write.
func (s *FileStore) ImportHistory(_ context.Context, h History) error {
	return s.mutate(h.User, func(rec *model.UserRecord) {
		for _, m := range h.Meals {
			if m.ID == "" {
				m.ID = uuid.New().String()
			}
			rec.Meals = append(rec.Meals, model.NewMealRecord(m))
		}
		for _, e := range h.Eliminations {
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			rec.Eliminations = append(rec.Eliminations, model.NewEliminationRecord(e))
		}
		rec.StockG = h.Stock
	})
}
