package watchlist

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

// Store keeps every watchlist in one storage document. Each mutation reads
// the whole document, changes it and writes it back while holding mu, so
// concurrent callers in this process never lose each other's updates.
type Store struct {
	storage types.Storage
	logger  types.Logger
	metrics types.MetricsManager
	mu      sync.Mutex
}

func NewStore(storage types.Storage, logger types.Logger, metrics types.MetricsManager) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *Store) All(ctx context.Context) (types.Watchlists, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx)
}

// Summaries lists watchlist names with their member counts, sorted by name.
func (s *Store) Summaries(ctx context.Context) ([]types.WatchlistSummary, error) {
	lists, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]types.WatchlistSummary, 0, len(lists))
	for _, name := range sortedNames(lists) {
		summaries = append(summaries, types.WatchlistSummary{Name: name, Count: len(lists[name])})
	}

	return summaries, nil
}

func (s *Store) Members(ctx context.Context, name string) ([]types.Member, error) {
	name, err := listName(name)
	if err != nil {
		return nil, err
	}

	lists, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	members, exists := lists[name]
	if !exists {
		return nil, types.Errorf(types.ErrWatchlistNotFound, "watchlist: %s", name)
	}

	if members == nil {
		members = []types.Member{}
	}

	return members, nil
}

// ListsContaining names the lists holding symbol, compared case-insensitively.
func (s *Store) ListsContaining(ctx context.Context, symbol string) ([]string, error) {
	symbol = utils.NormalizeSymbol(symbol)

	lists, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0)
	for _, name := range sortedNames(lists) {
		if indexOf(lists[name], symbol) >= 0 {
			names = append(names, name)
		}
	}

	return names, nil
}

func (s *Store) Contains(ctx context.Context, symbol string) (bool, error) {
	names, err := s.ListsContaining(ctx, symbol)
	if err != nil {
		return false, err
	}

	return len(names) > 0, nil
}

// Create adds a watchlist named after the trimmed name. A non-empty
// initialSymbol becomes its first member.
func (s *Store) Create(ctx context.Context, name, initialSymbol string) error {
	name, err := listName(name)
	if err != nil {
		return err
	}

	initialSymbol = utils.NormalizeSymbol(initialSymbol)

	return s.mutate(ctx, func(lists types.Watchlists) (bool, error) {
		if _, exists := lists[name]; exists {
			return false, types.Errorf(types.ErrWatchlistExists, "watchlist: %s", name)
		}

		members := []types.Member{}
		if initialSymbol != "" {
			members = append(members, types.Member{Symbol: initialSymbol})
		}

		lists[name] = members
		s.logger.Info("Watchlist created", zap.String("watchlist", name), zap.String("symbol", initialSymbol))
		return true, nil
	})
}

func (s *Store) Delete(ctx context.Context, name string) error {
	name, err := listName(name)
	if err != nil {
		return err
	}

	return s.mutate(ctx, func(lists types.Watchlists) (bool, error) {
		if _, exists := lists[name]; !exists {
			return false, nil
		}

		delete(lists, name)
		s.logger.Info("Watchlist deleted", zap.String("watchlist", name))
		return true, nil
	})
}

// Toggle removes symbol from the named list when present and adds it
// otherwise, creating the list if needed. It reports whether symbol was added.
func (s *Store) Toggle(ctx context.Context, name, symbol string) (bool, error) {
	name, symbol, err := memberArgs(name, symbol)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.mutate(ctx, func(lists types.Watchlists) (bool, error) {
		members := lists[name]
		if members == nil {
			members = []types.Member{}
		}

		if idx := indexOf(members, symbol); idx >= 0 {
			lists[name] = append(members[:idx:idx], members[idx+1:]...)
			added = false
			return true, nil
		}

		lists[name] = append(members, types.Member{Symbol: symbol})
		added = true
		return true, nil
	})
	if err != nil {
		return false, err
	}

	return added, nil
}

func (s *Store) Add(ctx context.Context, name, symbol string) error {
	name, symbol, err := memberArgs(name, symbol)
	if err != nil {
		return err
	}

	return s.mutate(ctx, func(lists types.Watchlists) (bool, error) {
		members, exists := lists[name]
		if exists && indexOf(members, symbol) >= 0 {
			return false, nil
		}

		if members == nil {
			members = []types.Member{}
		}

		lists[name] = append(members, types.Member{Symbol: symbol})
		return true, nil
	})
}

// RemoveMember drops symbol from the named list. An emptied list is kept.
func (s *Store) RemoveMember(ctx context.Context, name, symbol string) error {
	name, symbol, err := memberArgs(name, symbol)
	if err != nil {
		return err
	}

	return s.mutate(ctx, func(lists types.Watchlists) (bool, error) {
		members, exists := lists[name]
		if !exists {
			return false, nil
		}

		idx := indexOf(members, symbol)
		if idx < 0 {
			return false, nil
		}

		lists[name] = append(members[:idx:idx], members[idx+1:]...)
		return true, nil
	})
}

func (s *Store) mutate(ctx context.Context, apply func(lists types.Watchlists) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists, err := s.load(ctx)
	if err != nil {
		return err
	}

	changed, err := apply(lists)
	if err != nil || !changed {
		return err
	}

	if err := s.save(ctx, lists); err != nil {
		return err
	}

	s.recordCount(len(lists))
	return nil
}

func (s *Store) load(ctx context.Context) (types.Watchlists, error) {
	raw, ok, err := s.storage.Read(ctx, types.WatchlistsKey)
	if err != nil {
		return nil, types.Errorf(types.ErrStorageOperationFailed, "read watchlists: %v", err)
	}

	lists := make(types.Watchlists)
	if !ok || len(raw) == 0 {
		return lists, nil
	}

	if err := utils.Unmarshal(raw, &lists); err != nil {
		return nil, types.Errorf(types.ErrStorageOperationFailed, "decode watchlists: %v", err)
	}

	if lists == nil {
		lists = make(types.Watchlists)
	}

	return lists, nil
}

func (s *Store) save(ctx context.Context, lists types.Watchlists) error {
	raw, err := utils.Marshal(lists)
	if err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "encode watchlists: %v", err)
	}

	if err := s.storage.Write(ctx, types.WatchlistsKey, raw); err != nil {
		s.logger.Error("Failed to update watchlists", zap.Error(err))
		return types.Errorf(types.ErrStorageOperationFailed, "write watchlists: %v", err)
	}

	return nil
}

func (s *Store) recordCount(count int) {
	if s.metrics == nil {
		return
	}

	s.metrics.Gauge("watchlists_total", nil).Set(float64(count))
}

func listName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", types.ErrWatchlistNameEmpty
	}
	return name, nil
}

func memberArgs(name, symbol string) (string, string, error) {
	name, err := listName(name)
	if err != nil {
		return "", "", err
	}

	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return "", "", types.ErrSymbolEmpty
	}

	return name, symbol, nil
}

// indexOf expects an already normalized symbol.
func indexOf(members []types.Member, symbol string) int {
	for i, member := range members {
		if utils.NormalizeSymbol(member.Symbol) == symbol {
			return i
		}
	}
	return -1
}

func sortedNames(lists types.Watchlists) []string {
	names := make([]string, 0, len(lists))
	for name := range lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
