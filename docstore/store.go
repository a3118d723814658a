package docstore

import (
	"context"
	"slices"
	"sync"

	"github.com/foomo/docserver/service/vo"
	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	slotIndex                 = "index"
	slotGuideIndex            = "guideIndex"
	slotRecommendedItems      = "recommendedItems"
	slotGuideRecommendedItems = "guideRecommendedItems"
	slotVersion               = "version"
	slotLanguage              = "language"
)

func indexSlot(docType vo.DocType) (string, bool) {
	switch docType {
	case vo.DocTypeDoc:
		return slotIndex, true
	case vo.DocTypeGuide:
		return slotGuideIndex, true
	}
	return "", false
}

func recommendedSlot(docType vo.DocType) (string, bool) {
	switch docType {
	case vo.DocTypeDoc:
		return slotRecommendedItems, true
	case vo.DocTypeGuide:
		return slotGuideRecommendedItems, true
	}
	return "", false
}

type Options struct {
	// Versions and Languages are the allow-lists; the first entry is the default.
	Versions  []string
	Languages []string
	Persister Persister
	Logger    *zap.Logger
}

// Store caches documentation metadata fetched from the server.
type Store struct {
	logger    *zap.Logger
	fetcher   Fetcher
	persister Persister
	versions  []string
	languages []string

	mu          sync.RWMutex
	version     string
	language    string
	index       map[string][]vo.IndexItem
	recommended map[string][]vo.RecommendedItem
}

// Open creates a store and loads previously persisted slots.
func Open(ctx context.Context, fetcher Fetcher, options Options) (*Store, error) {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if len(options.Versions) == 0 {
		options.Versions = []string{"latest"}
	}
	if len(options.Languages) == 0 {
		options.Languages = []string{"en"}
	}

	s := &Store{
		logger:      options.Logger,
		fetcher:     fetcher,
		persister:   options.Persister,
		versions:    options.Versions,
		languages:   options.Languages,
		version:     options.Versions[0],
		language:    options.Languages[0],
		index:       map[string][]vo.IndexItem{},
		recommended: map[string][]vo.RecommendedItem{},
	}
	if s.persister == nil {
		return s, nil
	}

	values, err := s.persister.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.restore(values)
	return s, nil
}

func (s *Store) restore(values map[string][]byte) {
	decode := func(key string, v interface{}) bool {
		raw, ok := values[key]
		if !ok {
			return false
		}
		if err := json.Unmarshal(raw, v); err != nil {
			s.logger.Warn("discarding persisted slot", zap.String("slot", key), zap.Error(err))
			return false
		}
		return true
	}

	for _, key := range []string{slotIndex, slotGuideIndex} {
		var items []vo.IndexItem
		if decode(key, &items) {
			s.index[key] = items
		}
	}
	for _, key := range []string{slotRecommendedItems, slotGuideRecommendedItems} {
		var items []vo.RecommendedItem
		if decode(key, &items) {
			s.recommended[key] = items
		}
	}

	var version, language string
	if decode(slotVersion, &version) && lo.Contains(s.versions, version) {
		s.version = version
	}
	if decode(slotLanguage, &language) && lo.Contains(s.languages, language) {
		s.language = language
	}
}

func (s *Store) persist(ctx context.Context, values map[string]interface{}) {
	if s.persister == nil {
		return
	}
	encoded := make(map[string][]byte, len(values))
	for key, value := range values {
		b, err := json.Marshal(value)
		if err != nil {
			s.logger.Error("failed to encode slot", zap.String("slot", key), zap.Error(err))
			return
		}
		encoded[key] = b
	}
	if err := s.persister.Save(ctx, encoded); err != nil {
		s.logger.Error("failed to persist store", zap.Error(err))
	}
}

func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetVersion switches the version when it is allow-listed and ignores it otherwise.
func (s *Store) SetVersion(ctx context.Context, version string) {
	if !lo.Contains(s.versions, version) {
		return
	}
	s.mu.Lock()
	s.version = version
	s.mu.Unlock()
	s.persist(ctx, map[string]interface{}{slotVersion: version})
}

// SetLanguage switches the language when it is allow-listed and ignores it otherwise.
func (s *Store) SetLanguage(ctx context.Context, language string) {
	if !lo.Contains(s.languages, language) {
		return
	}
	s.mu.Lock()
	s.language = language
	s.mu.Unlock()
	s.persist(ctx, map[string]interface{}{slotLanguage: language})
}

// GetIndex returns the cached index, fetching it when the cache is empty or force is set.
// On fetch failure the cached value is returned with false. A result fetched for a version
// or language that changed during the fetch is returned but not cached.
func (s *Store) GetIndex(ctx context.Context, force bool, docType vo.DocType) ([]vo.IndexItem, bool) {
	key, ok := indexSlot(docType)
	if !ok {
		return nil, false
	}

	s.mu.RLock()
	cached := slices.Clone(s.index[key])
	version, language := s.version, s.language
	s.mu.RUnlock()
	if len(cached) > 0 && !force {
		return cached, true
	}

	items, err := s.fetcher.FetchIndex(ctx, version, language, docType)
	if err != nil {
		s.logger.Warn("failed to fetch index", zap.String("type", docType.String()), zap.Error(err))
		return cached, false
	}

	s.mu.Lock()
	if s.version != version || s.language != language {
		s.mu.Unlock()
		s.logger.Debug("discarding index fetched for a previous selection", zap.String("version", version), zap.String("language", language))
		return items, true
	}
	s.index[key] = items
	s.mu.Unlock()
	s.persist(ctx, map[string]interface{}{key: items})
	return slices.Clone(items), true
}

// GetRecommendedItems follows the same caching rules as GetIndex.
func (s *Store) GetRecommendedItems(ctx context.Context, force bool, docType vo.DocType) ([]vo.RecommendedItem, bool) {
	key, ok := recommendedSlot(docType)
	if !ok {
		return nil, false
	}

	s.mu.RLock()
	cached := slices.Clone(s.recommended[key])
	language := s.language
	s.mu.RUnlock()
	if len(cached) > 0 && !force {
		return cached, true
	}

	items, err := s.fetcher.FetchRecommendedItems(ctx, language, docType)
	if err != nil {
		s.logger.Warn("failed to fetch recommended items", zap.String("type", docType.String()), zap.Error(err))
		return cached, false
	}

	s.mu.Lock()
	if s.language != language {
		s.mu.Unlock()
		s.logger.Debug("discarding recommended items fetched for a previous language", zap.String("language", language))
		return items, true
	}
	s.recommended[key] = items
	s.mu.Unlock()
	s.persist(ctx, map[string]interface{}{key: items})
	return slices.Clone(items), true
}

func (s *Store) findCategory(folder string, docType vo.DocType) (vo.IndexItem, bool) {
	key, ok := indexSlot(docType)
	if !ok {
		return vo.IndexItem{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.index[key], func(item vo.IndexItem) bool {
		return item.Category == folder
	})
}

// ValidateFolder reports whether folder is a category of the cached index.
func (s *Store) ValidateFolder(folder string, docType vo.DocType) bool {
	_, ok := s.findCategory(folder, docType)
	return ok
}

// ValidatePage reports whether name is listed under folder in the cached index.
func (s *Store) ValidatePage(folder, name string, docType vo.DocType) bool {
	item, ok := s.findCategory(folder, docType)
	return ok && lo.Contains(item.Children, name)
}

// Refresh replaces all four collections from a single refresh call.
// Nothing changes when the call fails or the selection changed while it was in flight.
func (s *Store) Refresh(ctx context.Context) bool {
	s.mu.RLock()
	version, language := s.version, s.language
	s.mu.RUnlock()

	refresh, err := s.fetcher.FetchRefresh(ctx, version, language)
	if err != nil {
		s.logger.Warn("failed to refresh store", zap.String("version", version), zap.String("language", language), zap.Error(err))
		return false
	}

	s.mu.Lock()
	if s.version != version || s.language != language {
		s.mu.Unlock()
		s.logger.Info("discarding refresh for a previous selection", zap.String("version", version), zap.String("language", language))
		return false
	}
	s.index[slotIndex] = refresh.Index
	s.index[slotGuideIndex] = refresh.GuideIndex
	s.recommended[slotRecommendedItems] = refresh.RecommendedItems
	s.recommended[slotGuideRecommendedItems] = refresh.GuideRecommendedItems
	s.mu.Unlock()

	s.persist(ctx, map[string]interface{}{
		slotIndex:                 refresh.Index,
		slotGuideIndex:            refresh.GuideIndex,
		slotRecommendedItems:      refresh.RecommendedItems,
		slotGuideRecommendedItems: refresh.GuideRecommendedItems,
	})
	return true
}

func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}
