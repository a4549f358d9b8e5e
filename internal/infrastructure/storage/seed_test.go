package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"K10PlusExport/internal/domain"
)

// The upserts below seed the integration database. Production rows are
// written by the journal platform.

// saveJournal upserts a journal with its deposit settings.
func (r *PostgresRepository) saveJournal(ctx context.Context, journal domain.Journal, settings domain.DepositSettings) error {
	query, args, err := psql.
		Insert("journals").
		Columns("id", "path", "name", "zdb_id", "license_url",
			"sftp_username", "sftp_password", "sftp_server", "sftp_port", "sftp_folder", "automatic_registration").
		Values(journal.ID, journal.Path, journal.Name, journal.ZDBID, journal.LicenseURL,
			settings.Username, settings.Password, settings.ServerAddress, settings.Port, settings.FolderID,
			settings.AutomaticRegistration).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			path = EXCLUDED.path, name = EXCLUDED.name, zdb_id = EXCLUDED.zdb_id,
			license_url = EXCLUDED.license_url, sftp_username = EXCLUDED.sftp_username,
			sftp_password = EXCLUDED.sftp_password, sftp_server = EXCLUDED.sftp_server,
			sftp_port = EXCLUDED.sftp_port, sftp_folder = EXCLUDED.sftp_folder,
			automatic_registration = EXCLUDED.automatic_registration`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build journal upsert: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert journal %d: %w", journal.ID, err)
	}
	return nil
}

// saveArticle upserts an article snapshot. The journal must exist.
func (r *PostgresRepository) saveArticle(ctx context.Context, a domain.Article) error {
	contributors, err := json.Marshal(a.Contributors)
	if err != nil {
		return fmt.Errorf("encode contributors: %w", err)
	}
	keywords, err := json.Marshal(a.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}
	galleys, err := json.Marshal(a.Galleys)
	if err != nil {
		return fmt.Errorf("encode galleys: %w", err)
	}
	refs, err := json.Marshal(a.ReviewReferences)
	if err != nil {
		return fmt.Errorf("encode review references: %w", err)
	}

	var published *time.Time
	if !a.DatePublished.IsZero() {
		published = &a.DatePublished
	}

	query, args, err := psql.
		Insert("articles").
		Columns("id", "journal_id", "publication_id", "title", "subtitle", "date_published",
			"copyright_year", "doi", "pages", "issue_volume", "issue_number", "license_url",
			"digital_pub", "custom_comment", "url", "contributors", "keywords", "galleys", "review_references").
		Values(a.ID, a.Journal.ID, a.PublicationID, a.Title, a.Subtitle, published,
			a.CopyrightYear, a.DOI, a.Pages, a.Issue.Volume, a.Issue.Number, a.LicenseURL,
			a.DigitalPub, a.CustomComment, a.URL, string(contributors), string(keywords), string(galleys), string(refs)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			journal_id = EXCLUDED.journal_id, publication_id = EXCLUDED.publication_id,
			title = EXCLUDED.title, subtitle = EXCLUDED.subtitle, date_published = EXCLUDED.date_published,
			copyright_year = EXCLUDED.copyright_year, doi = EXCLUDED.doi, pages = EXCLUDED.pages,
			issue_volume = EXCLUDED.issue_volume, issue_number = EXCLUDED.issue_number,
			license_url = EXCLUDED.license_url, digital_pub = EXCLUDED.digital_pub,
			custom_comment = EXCLUDED.custom_comment, url = EXCLUDED.url,
			contributors = EXCLUDED.contributors, keywords = EXCLUDED.keywords,
			galleys = EXCLUDED.galleys, review_references = EXCLUDED.review_references`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build article upsert: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert article %d: %w", a.ID, err)
	}
	return nil
}
