package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/ports"
)

// MemoryRepository keeps journals, articles, settings and statuses in memory.
// It backs tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	journals []domain.Journal
	articles map[int64]domain.Article
	settings map[int64]domain.DepositSettings
	statuses map[int64]domain.StatusRecord
}

var (
	_ ports.ArticleRepository = (*MemoryRepository)(nil)
	_ ports.SettingsStore     = (*MemoryRepository)(nil)
	_ ports.StatusRepository  = (*MemoryRepository)(nil)
)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		articles: make(map[int64]domain.Article),
		settings: make(map[int64]domain.DepositSettings),
		statuses: make(map[int64]domain.StatusRecord),
	}
}

// AddJournal registers a journal with its deposit settings.
func (r *MemoryRepository) AddJournal(journal domain.Journal, settings domain.DepositSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.journals = append(r.journals, journal)
	r.settings[journal.ID] = settings
}

// AddArticle stores or replaces an article.
func (r *MemoryRepository) AddArticle(article domain.Article) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.articles[article.ID] = article
}

// Journals returns journals in registration order.
func (r *MemoryRepository) Journals(_ context.Context) ([]domain.Journal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.journals), nil
}

// Article returns one article by submission id.
func (r *MemoryRepository) Article(_ context.Context, id int64) (domain.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	article, ok := r.articles[id]
	if !ok {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return article, nil
}

// ArticleIDsByStatus returns ascending ids of the journal's articles whose
// status is one of statuses.
func (r *MemoryRepository) ArticleIDsByStatus(_ context.Context, journalID int64, statuses []domain.DepositStatus) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for id, article := range r.articles {
		if article.Journal.ID != journalID {
			continue
		}
		current := domain.StatusNotDeposited
		if record, ok := r.statuses[id]; ok {
			current = record.Status
		}
		if slices.Contains(statuses, current) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// DepositSettings returns the journal's settings, or zero settings when none
// were stored.
func (r *MemoryRepository) DepositSettings(_ context.Context, journalID int64) (domain.DepositSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.settings[journalID], nil
}

// LoadStatus implements ports.StatusRepository.
func (r *MemoryRepository) LoadStatus(_ context.Context, articleID int64) (domain.StatusRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.statuses[articleID]
	return record, ok, nil
}

// SaveStatus implements ports.StatusRepository.
func (r *MemoryRepository) SaveStatus(_ context.Context, articleID int64, record domain.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses[articleID] = record
	return nil
}
