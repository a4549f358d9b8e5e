package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const statusColumn = "COALESCE(s.status, 'notDeposited')"

// PostgresRepository reads articles and settings from Postgres and persists
// deposit statuses next to them.
type PostgresRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

var (
	_ ports.ArticleRepository = (*PostgresRepository)(nil)
	_ ports.SettingsStore     = (*PostgresRepository)(nil)
	_ ports.StatusRepository  = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a pgx pool. A zero timeout means 5 seconds per
// query.
func NewPostgresRepository(db *pgxpool.Pool, timeout time.Duration) *PostgresRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresRepository{db: db, timeout: timeout}
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Journals returns all journals ordered by id.
func (r *PostgresRepository) Journals(ctx context.Context) ([]domain.Journal, error) {
	query, args, err := journalsQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build journals query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journals: %w", err)
	}
	defer rows.Close()

	var journals []domain.Journal
	for rows.Next() {
		var j domain.Journal
		if err := rows.Scan(&j.ID, &j.Path, &j.Name, &j.ZDBID, &j.LicenseURL); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return journals, nil
}

// Article loads one article together with its journal.
func (r *PostgresRepository) Article(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := articleQuery(id).ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		a                                              domain.Article
		published                                      *time.Time
		contributors, keywords, galleys, reviewRefsRaw []byte
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.PublicationID, &a.Title, &a.Subtitle, &published, &a.CopyrightYear,
		&a.DOI, &a.Pages, &a.Issue.Volume, &a.Issue.Number, &a.LicenseURL,
		&a.DigitalPub, &a.CustomComment, &a.URL,
		&contributors, &keywords, &galleys, &reviewRefsRaw,
		&a.Journal.ID, &a.Journal.Path, &a.Journal.Name, &a.Journal.ZDBID, &a.Journal.LicenseURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("query article %d: %w", id, err)
	}

	if published != nil {
		a.DatePublished = *published
	}
	if err := decodeJSON(contributors, &a.Contributors); err != nil {
		return domain.Article{}, fmt.Errorf("decode contributors of %d: %w", id, err)
	}
	if err := decodeJSON(keywords, &a.Keywords); err != nil {
		return domain.Article{}, fmt.Errorf("decode keywords of %d: %w", id, err)
	}
	if err := decodeJSON(galleys, &a.Galleys); err != nil {
		return domain.Article{}, fmt.Errorf("decode galleys of %d: %w", id, err)
	}
	if err := decodeJSON(reviewRefsRaw, &a.ReviewReferences); err != nil {
		return domain.Article{}, fmt.Errorf("decode review references of %d: %w", id, err)
	}
	return a, nil
}

// ArticleIDsByStatus lists the journal's article ids whose status is one of
// statuses. Articles without a status row count as notDeposited.
func (r *PostgresRepository) ArticleIDsByStatus(ctx context.Context, journalID int64, statuses []domain.DepositStatus) ([]int64, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query, args, err := articleIDsByStatusQuery(journalID, statuses).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}
	return ids, nil
}

// DepositSettings reads the SFTP settings stored on the journal row.
func (r *PostgresRepository) DepositSettings(ctx context.Context, journalID int64) (domain.DepositSettings, error) {
	query, args, err := settingsQuery(journalID).ToSql()
	if err != nil {
		return domain.DepositSettings{}, fmt.Errorf("build settings query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var s domain.DepositSettings
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&s.Username, &s.Password, &s.ServerAddress, &s.Port, &s.FolderID, &s.AutomaticRegistration,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DepositSettings{}, fmt.Errorf("journal %d: %w", journalID, ErrNotFound)
	}
	if err != nil {
		return domain.DepositSettings{}, fmt.Errorf("query settings %d: %w", journalID, err)
	}
	return s, nil
}

// LoadStatus implements ports.StatusRepository.
func (r *PostgresRepository) LoadStatus(ctx context.Context, articleID int64) (domain.StatusRecord, bool, error) {
	query, args, err := psql.
		Select("status", "last_error", "updated_at").
		From("deposit_statuses").
		Where(sq.Eq{"article_id": articleID}).
		ToSql()
	if err != nil {
		return domain.StatusRecord{}, false, fmt.Errorf("build status query: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		literal string
		record  domain.StatusRecord
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(&literal, &record.LastError, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StatusRecord{}, false, nil
	}
	if err != nil {
		return domain.StatusRecord{}, false, fmt.Errorf("query status %d: %w", articleID, err)
	}

	record.Status, err = domain.ParseDepositStatus(literal)
	if err != nil {
		return domain.StatusRecord{}, false, fmt.Errorf("article %d: %w", articleID, err)
	}
	return record, true, nil
}

// SaveStatus upserts the status row of one article.
func (r *PostgresRepository) SaveStatus(ctx context.Context, articleID int64, record domain.StatusRecord) error {
	query, args, err := saveStatusQuery(articleID, record).ToSql()
	if err != nil {
		return fmt.Errorf("build status upsert: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert status %d: %w", articleID, err)
	}
	return nil
}

func journalsQuery() sq.SelectBuilder {
	return psql.
		Select("id", "path", "name", "zdb_id", "license_url").
		From("journals").
		OrderBy("id")
}

func articleQuery(id int64) sq.SelectBuilder {
	return psql.
		Select(
			"a.id", "a.publication_id", "a.title", "a.subtitle", "a.date_published", "a.copyright_year",
			"a.doi", "a.pages", "a.issue_volume", "a.issue_number", "a.license_url",
			"a.digital_pub", "a.custom_comment", "a.url",
			"a.contributors", "a.keywords", "a.galleys", "a.review_references",
			"j.id", "j.path", "j.name", "j.zdb_id", "j.license_url",
		).
		From("articles a").
		Join("journals j ON j.id = a.journal_id").
		Where(sq.Eq{"a.id": id})
}

func articleIDsByStatusQuery(journalID int64, statuses []domain.DepositStatus) sq.SelectBuilder {
	literals := make([]string, len(statuses))
	for i, status := range statuses {
		literals[i] = status.String()
	}
	return psql.
		Select("a.id").
		From("articles a").
		LeftJoin("deposit_statuses s ON s.article_id = a.id").
		Where(sq.Eq{"a.journal_id": journalID}).
		Where(sq.Eq{statusColumn: literals}).
		OrderBy("a.id")
}

func settingsQuery(journalID int64) sq.SelectBuilder {
	return psql.
		Select("sftp_username", "sftp_password", "sftp_server", "sftp_port", "sftp_folder", "automatic_registration").
		From("journals").
		Where(sq.Eq{"id": journalID})
}

func saveStatusQuery(articleID int64, record domain.StatusRecord) sq.InsertBuilder {
	return psql.
		Insert("deposit_statuses").
		Columns("article_id", "status", "last_error", "updated_at").
		Values(articleID, record.Status.String(), record.LastError, record.UpdatedAt).
		Suffix("ON CONFLICT (article_id) DO UPDATE SET status = EXCLUDED.status, last_error = EXCLUDED.last_error, updated_at = EXCLUDED.updated_at")
}

func decodeJSON(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
