package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-stockwatch/logger"
	"github.com/saiset-co/sai-stockwatch/storage"
	"github.com/saiset-co/sai-stockwatch/types"
)

type brokenStorage struct {
	types.Storage
	readErr  error
	writeErr error
}

func (b *brokenStorage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if b.readErr != nil {
		return nil, false, b.readErr
	}
	return b.Storage.Read(ctx, key)
}

func (b *brokenStorage) Write(ctx context.Context, key string, value []byte) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.Storage.Write(ctx, key, value)
}

func newTestStore(t *testing.T) (*Store, types.Storage) {
	t.Helper()

	backend, err := storage.NewMemoryStorage(logger.NewNop())
	require.NoError(t, err)

	return NewStore(backend, logger.NewNop(), nil), backend
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	require.NoError(t, store.Create(ctx, "  Tech  ", "AAPL"))

	members, err := store.Members(ctx, "Tech")
	require.NoError(t, err)
	assert.Equal(t, []types.Member{{Symbol: "AAPL"}}, members)

	raw, ok, err := backend.Read(ctx, types.WatchlistsKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"Tech":[{"symbol":"AAPL"}]}`, string(raw))
}

func TestCreateRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	err := store.Create(ctx, "   ", "AAPL")
	assert.ErrorIs(t, err, types.ErrWatchlistNameEmpty)

	_, ok, err := backend.Read(ctx, types.WatchlistsKey)
	require.NoError(t, err)
	assert.False(t, ok, "nothing is written on validation failure")
}

func TestCreateDuplicateLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(ctx, "Tech", "AAPL"))

	err := store.Create(ctx, "Tech", "MSFT")
	assert.ErrorIs(t, err, types.ErrWatchlistExists)

	lists, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Watchlists{"Tech": {{Symbol: "AAPL"}}}, lists)
}

func TestCreateWithoutSymbol(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(ctx, "Later", ""))

	members, err := store.Members(ctx, "Later")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestToggleTwiceLeavesEmptyList(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	added, err := store.Toggle(ctx, "Tech", "AAPL")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.Toggle(ctx, "Tech", "AAPL")
	require.NoError(t, err)
	assert.False(t, added)

	lists, err := store.All(ctx)
	require.NoError(t, err)
	require.Contains(t, lists, "Tech")
	assert.Empty(t, lists["Tech"])

	raw, _, err := backend.Read(ctx, types.WatchlistsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Tech":[]}`, string(raw))
}

func TestToggleKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, symbol := range []string{"AAPL", "MSFT", "NVDA"} {
		_, err := store.Toggle(ctx, "Tech", symbol)
		require.NoError(t, err)
	}

	_, err := store.Toggle(ctx, "Tech", "MSFT")
	require.NoError(t, err)

	members, err := store.Members(ctx, "Tech")
	require.NoError(t, err)
	assert.Equal(t, []types.Member{{Symbol: "AAPL"}, {Symbol: "NVDA"}}, members)

	_, err = store.Toggle(ctx, "Tech", "")
	assert.ErrorIs(t, err, types.ErrSymbolEmpty)
}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Add(ctx, "Energy", "XOM"))
	require.NoError(t, store.Add(ctx, "Energy", "XOM"))
	require.NoError(t, store.Add(ctx, "Energy", "CVX"))

	members, err := store.Members(ctx, "Energy")
	require.NoError(t, err)
	assert.Equal(t, []types.Member{{Symbol: "XOM"}, {Symbol: "CVX"}}, members)
}

func TestRemoveMemberKeepsEmptyList(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(ctx, "Tech", "AAPL"))
	require.NoError(t, store.RemoveMember(ctx, "Tech", "AAPL"))
	require.NoError(t, store.RemoveMember(ctx, "Tech", "AAPL"))
	require.NoError(t, store.RemoveMember(ctx, "Missing", "AAPL"))

	lists, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Watchlists{"Tech": {}}, lists)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(ctx, "Tech", "AAPL"))
	require.NoError(t, store.Delete(ctx, "Tech"))
	require.NoError(t, store.Delete(ctx, "Tech"))

	_, err := store.Members(ctx, "Tech")
	assert.ErrorIs(t, err, types.ErrWatchlistNotFound)
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Create(ctx, "Tech", "AAPL"))
	require.NoError(t, store.Add(ctx, "Tech", "MSFT"))
	require.NoError(t, store.Create(ctx, "Dividends", "MSFT"))
	require.NoError(t, store.Create(ctx, "Empty", ""))

	summaries, err := store.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.WatchlistSummary{
		{Name: "Dividends", Count: 1},
		{Name: "Empty", Count: 0},
		{Name: "Tech", Count: 2},
	}, summaries)

	names, err := store.ListsContaining(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, []string{"Dividends", "Tech"}, names)

	contains, err := store.Contains(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, contains)

	contains, err = store.Contains(ctx, "TSLA")
	require.NoError(t, err)
	assert.False(t, contains)
}

func TestReadsExistingDocument(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	require.NoError(t, backend.Write(ctx, types.WatchlistsKey,
		[]byte(`{"Legacy":[{"symbol":"IBM","name":"International Business Machines"}],"Nulls":null}`)))

	members, err := store.Members(ctx, "Legacy")
	require.NoError(t, err)
	assert.Equal(t, "International Business Machines", members[0].Name)

	members, err = store.Members(ctx, "Nulls")
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}

func TestStorageFailures(t *testing.T) {
	ctx := context.Background()
	backend, err := storage.NewMemoryStorage(logger.NewNop())
	require.NoError(t, err)

	diskErr := errors.New("disk full")

	writeFails := NewStore(&brokenStorage{Storage: backend, writeErr: diskErr}, logger.NewNop(), nil)
	_, err = writeFails.Toggle(ctx, "Tech", "AAPL")
	assert.ErrorIs(t, err, types.ErrStorageOperationFailed)
	assert.ErrorContains(t, err, "disk full")

	readFails := NewStore(&brokenStorage{Storage: backend, readErr: diskErr}, logger.NewNop(), nil)
	_, err = readFails.All(ctx)
	assert.ErrorIs(t, err, types.ErrStorageOperationFailed)

	require.NoError(t, backend.Write(ctx, types.WatchlistsKey, []byte("{broken")))
	corrupt := NewStore(backend, logger.NewNop(), nil)
	err = corrupt.Add(ctx, "Tech", "AAPL")
	assert.ErrorIs(t, err, types.ErrStorageOperationFailed)
}

func TestConcurrentTogglesAreNotLost(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Toggle(ctx, "Tech", fmt.Sprintf("SYM%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	members, err := store.Members(ctx, "Tech")
	require.NoError(t, err)
	assert.Len(t, members, workers)
}

func TestBlankNameIsRejectedBeforeWriting(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	_, err := store.Toggle(ctx, "  ", "AAPL")
	assert.ErrorIs(t, err, types.ErrWatchlistNameEmpty)
	assert.ErrorIs(t, store.Add(ctx, "", "AAPL"), types.ErrWatchlistNameEmpty)
	assert.ErrorIs(t, store.RemoveMember(ctx, "\t", "AAPL"), types.ErrWatchlistNameEmpty)
	assert.ErrorIs(t, store.Delete(ctx, " "), types.ErrWatchlistNameEmpty)

	_, err = store.Members(ctx, " ")
	assert.ErrorIs(t, err, types.ErrWatchlistNameEmpty)

	_, ok, err := backend.Read(ctx, types.WatchlistsKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNamesAreTrimmed(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Toggle(ctx, " Tech ", "AAPL")
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, "Tech  ", "MSFT"))

	lists, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Watchlists{"Tech": {{Symbol: "AAPL"}, {Symbol: "MSFT"}}}, lists)
}

func TestSymbolsCompareCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	added, err := store.Toggle(ctx, "Tech", "aapl")
	require.NoError(t, err)
	assert.True(t, added)

	contains, err := store.Contains(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, contains)

	names, err := store.ListsContaining(ctx, " aApL ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech"}, names)

	added, err = store.Toggle(ctx, "Tech", "AAPL")
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, backend.Write(ctx, types.WatchlistsKey, []byte(`{"Old":[{"symbol":"msft"}]}`)))
	require.NoError(t, store.Add(ctx, "Old", "MSFT"))

	members, err := store.Members(ctx, "Old")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestMutationKeepsUnknownMemberFields(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	require.NoError(t, backend.Write(ctx, types.WatchlistsKey,
		[]byte(`{"Tech":[{"symbol":"AAPL","name":"Apple Inc","price":150,"addedAt":1709309100000,"tags":["core"]}]}`)))

	_, err := store.Toggle(ctx, "Tech", "MSFT")
	require.NoError(t, err)

	raw, _, err := backend.Read(ctx, types.WatchlistsKey)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"Tech":[{"symbol":"AAPL","name":"Apple Inc","price":150,"addedAt":1709309100000,"tags":["core"]},{"symbol":"MSFT"}]}`,
		string(raw))

	members, err := store.Members(ctx, "Tech")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", members[0].Name)
	assert.JSONEq(t, `150`, string(members[0].Extra["price"]))
	assert.Nil(t, members[1].Extra)
}
