package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/foomo/docserver/service/vo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu          sync.Mutex
	calls       []string
	err         error
	index       map[vo.DocType][]vo.IndexItem
	recommended map[vo.DocType][]vo.RecommendedItem
	refresh     *vo.Refresh
	// during runs inside a fetch, after the call is recorded.
	during func()
}

func (f *fakeFetcher) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	during := f.during
	f.mu.Unlock()
	if during != nil {
		during()
	}
}

func (f *fakeFetcher) FetchIndex(ctx context.Context, version, language string, docType vo.DocType) ([]vo.IndexItem, error) {
	f.record("index:" + version + "/" + language + "/" + docType.String())
	if f.err != nil {
		return nil, f.err
	}
	return f.index[docType], nil
}

func (f *fakeFetcher) FetchRecommendedItems(ctx context.Context, language string, docType vo.DocType) ([]vo.RecommendedItem, error) {
	f.record("recommended:" + language + "/" + docType.String())
	if f.err != nil {
		return nil, f.err
	}
	return f.recommended[docType], nil
}

func (f *fakeFetcher) FetchRefresh(ctx context.Context, version, language string) (*vo.Refresh, error) {
	f.record("refresh:" + version + "/" + language)
	if f.err != nil {
		return nil, f.err
	}
	return f.refresh, nil
}

var (
	docIndex = []vo.IndexItem{
		{Category: "Getting_Started", Children: []string{"Install", "Configure"}},
		{Category: "Empty", Children: []string{}},
	}
	guideIndex = []vo.IndexItem{
		{Category: "Tutorials", Children: []string{"First_Steps"}},
	}
	docRecommended = []vo.RecommendedItem{
		{ID: 3, Title: "Install", Category: "Getting_Started", Page: "Install"},
	}
)

func newFetcher() *fakeFetcher {
	return &fakeFetcher{
		index: map[vo.DocType][]vo.IndexItem{
			vo.DocTypeDoc:   docIndex,
			vo.DocTypeGuide: guideIndex,
		},
		recommended: map[vo.DocType][]vo.RecommendedItem{
			vo.DocTypeDoc:   docRecommended,
			vo.DocTypeGuide: {vo.PlaceholderRecommendedItem()},
		},
		refresh: &vo.Refresh{
			Index:                 docIndex,
			GuideIndex:            guideIndex,
			RecommendedItems:      docRecommended,
			GuideRecommendedItems: []vo.RecommendedItem{vo.PlaceholderRecommendedItem()},
		},
	}
}

func openStore(t *testing.T, fetcher Fetcher, persister Persister) *Store {
	t.Helper()
	s, err := Open(context.Background(), fetcher, Options{
		Versions:  []string{"latest", "v1"},
		Languages: []string{"en", "de"},
		Persister: persister,
	})
	require.NoError(t, err)
	return s
}

func TestGetIndexUsesCache(t *testing.T) {
	fetcher := newFetcher()
	s := openStore(t, fetcher, nil)
	ctx := context.Background()

	items, ok := s.GetIndex(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, docIndex, items)

	items, ok = s.GetIndex(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, docIndex, items)
	assert.Equal(t, []string{"index:latest/en/Doc"}, fetcher.calls)

	_, ok = s.GetIndex(ctx, true, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Len(t, fetcher.calls, 2)

	_, ok = s.GetIndex(ctx, false, vo.DocType("Blog"))
	assert.False(t, ok)
	assert.Len(t, fetcher.calls, 2)
}

func TestGetIndexFailureKeepsCache(t *testing.T) {
	fetcher := newFetcher()
	s := openStore(t, fetcher, nil)
	ctx := context.Background()

	_, ok := s.GetIndex(ctx, false, vo.DocTypeGuide)
	require.True(t, ok)

	fetcher.err = errors.New("connection refused")
	items, ok := s.GetIndex(ctx, true, vo.DocTypeGuide)
	assert.False(t, ok)
	assert.Equal(t, guideIndex, items)

	items, ok = s.GetIndex(ctx, false, vo.DocTypeDoc)
	assert.False(t, ok)
	assert.Empty(t, items)
}

func TestGetRecommendedItems(t *testing.T) {
	fetcher := newFetcher()
	s := openStore(t, fetcher, nil)
	ctx := context.Background()

	items, ok := s.GetRecommendedItems(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, docRecommended, items)

	_, ok = s.GetRecommendedItems(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, []string{"recommended:en/Doc"}, fetcher.calls)
}

func TestValidate(t *testing.T) {
	s := openStore(t, newFetcher(), nil)
	assert.False(t, s.ValidateFolder("Getting_Started", vo.DocTypeDoc))

	require.True(t, s.Refresh(context.Background()))

	assert.True(t, s.ValidateFolder("Getting_Started", vo.DocTypeDoc))
	assert.True(t, s.ValidateFolder("Empty", vo.DocTypeDoc))
	assert.False(t, s.ValidateFolder("Tutorials", vo.DocTypeDoc))
	assert.True(t, s.ValidateFolder("Tutorials", vo.DocTypeGuide))

	assert.True(t, s.ValidatePage("Getting_Started", "Install", vo.DocTypeDoc))
	assert.False(t, s.ValidatePage("Getting_Started", "First_Steps", vo.DocTypeDoc))
	assert.False(t, s.ValidatePage("Empty", "Install", vo.DocTypeDoc))
	assert.False(t, s.ValidatePage("Missing", "Install", vo.DocTypeDoc))
	assert.True(t, s.ValidatePage("Tutorials", "First_Steps", vo.DocTypeGuide))
}

func TestRefreshFailureChangesNothing(t *testing.T) {
	fetcher := newFetcher()
	s := openStore(t, fetcher, nil)
	ctx := context.Background()
	require.True(t, s.Refresh(ctx))

	fetcher.err = errors.New("HTTP request /refresh/latest/en failed with status: 500")
	assert.False(t, s.Refresh(ctx))

	fetcher.err = nil
	items, ok := s.GetIndex(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, docIndex, items)
	guide, _ := s.GetIndex(ctx, false, vo.DocTypeGuide)
	assert.Equal(t, guideIndex, guide)
	recommended, _ := s.GetRecommendedItems(ctx, false, vo.DocTypeDoc)
	assert.Equal(t, docRecommended, recommended)
	guideRecommended, _ := s.GetRecommendedItems(ctx, false, vo.DocTypeGuide)
	assert.Equal(t, []vo.RecommendedItem{vo.PlaceholderRecommendedItem()}, guideRecommended)

	assert.Equal(t, []string{"refresh:latest/en", "refresh:latest/en"}, fetcher.calls)
}

func TestSelectionChangeDuringFetch(t *testing.T) {
	fetcher := newFetcher()
	s := openStore(t, fetcher, nil)
	ctx := context.Background()

	fetcher.during = func() { s.SetVersion(ctx, "v1") }
	items, ok := s.GetIndex(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, docIndex, items)
	assert.Equal(t, "v1", s.Version())
	assert.False(t, s.ValidateFolder("Getting_Started", vo.DocTypeDoc))

	fetcher.during = func() { s.SetLanguage(ctx, "de") }
	_, ok = s.GetRecommendedItems(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, "de", s.Language())

	fetcher.during = func() { s.SetVersion(ctx, "latest") }
	assert.False(t, s.Refresh(ctx))
	assert.False(t, s.ValidateFolder("Tutorials", vo.DocTypeGuide))

	fetcher.during = nil
	_, ok = s.GetIndex(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	_, ok = s.GetRecommendedItems(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, []string{
		"index:latest/en/Doc",
		"recommended:en/Doc",
		"refresh:v1/de",
		"index:latest/de/Doc",
		"recommended:de/Doc",
	}, fetcher.calls)
}

func TestSetVersionAndLanguage(t *testing.T) {
	fetcher := newFetcher()
	s := openStore(t, fetcher, nil)
	ctx := context.Background()

	s.SetVersion(ctx, "v2")
	s.SetLanguage(ctx, "fr")
	assert.Equal(t, "latest", s.Version())
	assert.Equal(t, "en", s.Language())

	s.SetVersion(ctx, "v1")
	s.SetLanguage(ctx, "de")
	assert.Equal(t, "v1", s.Version())
	assert.Equal(t, "de", s.Language())

	s.Refresh(ctx)
	assert.Equal(t, []string{"refresh:v1/de"}, fetcher.calls)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "docs.db")
	ctx := context.Background()

	persister, err := OpenSQLite(path)
	require.NoError(t, err)
	s := openStore(t, newFetcher(), persister)
	require.True(t, s.Refresh(ctx))
	s.SetLanguage(ctx, "de")
	s.SetVersion(ctx, "nightly")
	require.NoError(t, s.Close())

	persister, err = OpenSQLite(path)
	require.NoError(t, err)
	failing := &fakeFetcher{err: errors.New("offline")}
	s = openStore(t, failing, persister)
	defer s.Close()

	assert.Equal(t, "latest", s.Version())
	assert.Equal(t, "de", s.Language())
	items, ok := s.GetIndex(ctx, false, vo.DocTypeDoc)
	require.True(t, ok)
	assert.Equal(t, docIndex, items)
	assert.True(t, s.ValidatePage("Tutorials", "First_Steps", vo.DocTypeGuide))
	assert.Empty(t, failing.calls)
}
