package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
	"K10PlusExport/internal/ports"
	"K10PlusExport/internal/status"
)

const fileStampLayout = "20060102-150405"

// ErrDepositNotConfigured is returned for journals lacking SFTP settings.
var ErrDepositNotConfigured = errors.New("deposit settings incomplete")

// RecordTransformer builds the catalog record of one article.
type RecordTransformer interface {
	Transform(article domain.Article) (*marc.Record, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Articles    ports.ArticleRepository
	Settings    ports.SettingsStore
	Status      *status.Store
	Transformer RecordTransformer
	Packager    ports.Packager
	Archive     ports.ArchiveCapability
	Transporter ports.Transporter
	Notifier    ports.Notifier
	Logger      *slog.Logger
	// WorkDir holds temporary record files; empty means os.TempDir.
	WorkDir string
	// Workers bounds concurrent records per batch; values below 1 mean 1.
	Workers int
	// Location is the zone of the timestamps in file names.
	Location *time.Location
	Now      func() time.Time
}

// Pipeline runs exports, deposits and status actions for journal batches.
type Pipeline struct {
	articles    ports.ArticleRepository
	settings    ports.SettingsStore
	status      *status.Store
	transformer RecordTransformer
	packager    ports.Packager
	archive     ports.ArchiveCapability
	transporter ports.Transporter
	notifier    ports.Notifier
	logger      *slog.Logger
	workDir     string
	workers     int
	location    *time.Location
	now         func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		articles:    deps.Articles,
		settings:    deps.Settings,
		status:      deps.Status,
		transformer: deps.Transformer,
		packager:    deps.Packager,
		archive:     deps.Archive,
		transporter: deps.Transporter,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		workDir:     deps.WorkDir,
		workers:     deps.Workers,
		location:    deps.Location,
		now:         deps.Now,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// ExportFileName names the XML file of one article.
func ExportFileName(stamp string, articleID int64) string {
	return fmt.Sprintf("k10Plus-%s-articles-%d.xml", stamp, articleID)
}

// ArchiveFileName names the bundle of a multi-article export.
func ArchiveFileName(stamp string) string {
	return fmt.Sprintf("k10Plus-%s-articles.tar.gz", stamp)
}

func (p *Pipeline) batchLogger(jobID string, action domain.Action, journal domain.Journal) *slog.Logger {
	return p.logger.With("job_id", jobID, "action", action.String(), "journal", journal.Path)
}

// Export transforms every article and streams one artifact to w: the XML file
// itself for a single article, a tar.gz bundle otherwise. Any failing record
// aborts the whole export. It returns the artifact's file name.
func (p *Pipeline) Export(ctx context.Context, journal domain.Journal, ids []int64, w io.Writer) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("export journal %s: no articles selected", journal.Path)
	}
	if p.archive != nil {
		if err := p.archive.Check(); err != nil {
			return "", fmt.Errorf("export journal %s: %w", journal.Path, err)
		}
	}

	jobID := uuid.NewString()
	logger := p.batchLogger(jobID, domain.ActionExport, journal)

	dir, err := os.MkdirTemp(p.workDir, "k10plus-export-*")
	if err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	defer os.RemoveAll(dir)

	stamp := p.now().In(p.location).Format(fileStampLayout)
	files := make([]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := p.render(gctx, journal, id)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, ExportFileName(stamp, id))
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write record %d: %w", id, err)
			}
			files[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("export aborted", "error", err)
		p.notify(ctx, logger, exportFailureMessage(journal, err))
		return "", fmt.Errorf("export journal %s: %w", journal.Path, err)
	}

	artifact, err := p.packager.Package(ctx, files, filepath.Join(dir, ArchiveFileName(stamp)))
	if err != nil {
		logger.Error("packaging failed", "error", err)
		return "", fmt.Errorf("package export: %w", err)
	}

	f, err := os.Open(artifact)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(w, f)
	if err != nil {
		return "", fmt.Errorf("stream artifact: %w", err)
	}

	logger.Info("export finished", "records", len(ids), "artifact", filepath.Base(artifact), "bytes", written)
	return filepath.Base(artifact), nil
}

// Deposit uploads every article separately and records Registered or Failed
// per article. One article's failure never stops the others.
func (p *Pipeline) Deposit(ctx context.Context, journal domain.Journal, ids []int64) (domain.BatchReport, error) {
	job := domain.BatchJob{ID: uuid.NewString(), Journal: journal, Action: domain.ActionDeposit, ArticleIDs: ids}
	logger := p.batchLogger(job.ID, job.Action, journal)

	settings, err := p.settings.DepositSettings(ctx, journal.ID)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("load deposit settings of %s: %w", journal.Path, err)
	}
	if !settings.CanDeposit() {
		return domain.BatchReport{}, fmt.Errorf("journal %s: %w", journal.Path, ErrDepositNotConfigured)
	}

	credentials := settings.Credentials()
	endpoint := settings.Endpoint()
	stamp := p.now().In(p.location).Format(fileStampLayout)

	report := domain.BatchReport{
		JobID:    job.ID,
		Action:   job.Action,
		Journal:  journal,
		Outcomes: make([]domain.Outcome, len(ids)),
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, id := range job.ArticleIDs {
		g.Go(func() error {
			report.Outcomes[i] = domain.Outcome{
				ArticleID: id,
				Err:       p.depositOne(ctx, logger, journal, id, stamp, credentials, endpoint),
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("deposit finished", "registered", report.Succeeded(), "failed", len(report.Failed()))
	p.notify(ctx, logger, depositSummaryMessage(report))
	return report, nil
}

func (p *Pipeline) depositOne(
	ctx context.Context,
	logger *slog.Logger,
	journal domain.Journal,
	id int64,
	stamp string,
	credentials domain.Credentials,
	endpoint domain.Endpoint,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger = logger.With("article_id", id)
	logger.Info("depositing article", "endpoint", endpoint.String())

	depositErr := p.upload(ctx, journal, id, stamp, credentials, endpoint)
	if depositErr != nil {
		logger.Error("deposit failed", "error", depositErr)
		var foreign *domain.ForeignArticleError
		if errors.As(depositErr, &foreign) {
			return depositErr
		}
		if err := p.status.RecordDepositFailure(ctx, id, depositErr.Error()); err != nil {
			return errors.Join(depositErr, err)
		}
		return depositErr
	}

	if err := p.status.RecordDepositSuccess(ctx, id); err != nil {
		logger.Error("status update failed", "error", err)
		return err
	}
	logger.Info("article registered")
	return nil
}

func (p *Pipeline) upload(
	ctx context.Context,
	journal domain.Journal,
	id int64,
	stamp string,
	credentials domain.Credentials,
	endpoint domain.Endpoint,
) error {
	data, err := p.render(ctx, journal, id)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp(p.workDir, "k10plus-deposit-*")
	if err != nil {
		return fmt.Errorf("create deposit dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, ExportFileName(stamp, id))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write record %d: %w", id, err)
	}

	return p.transporter.Deposit(ctx, path, credentials, endpoint)
}

func (p *Pipeline) render(ctx context.Context, journal domain.Journal, id int64) ([]byte, error) {
	article, err := p.ownedArticle(ctx, journal, id)
	if err != nil {
		return nil, err
	}
	record, err := p.transformer.Transform(article)
	if err != nil {
		return nil, err
	}
	data, err := marc.Serialize(record)
	if err != nil {
		return nil, fmt.Errorf("serialize record %d: %w", id, err)
	}
	return data, nil
}

// ownedArticle loads an article and rejects it unless it belongs to journal.
func (p *Pipeline) ownedArticle(ctx context.Context, journal domain.Journal, id int64) (domain.Article, error) {
	article, err := p.articles.Article(ctx, id)
	if err != nil {
		return domain.Article{}, fmt.Errorf("load article %d: %w", id, err)
	}
	if article.Journal.ID != journal.ID {
		return domain.Article{}, &domain.ForeignArticleError{
			ArticleID: id,
			Journal:   journal.Path,
			Owner:     article.Journal.Path,
		}
	}
	return article, nil
}

// MarkRegistered flags articles as present in the catalog without depositing.
func (p *Pipeline) MarkRegistered(ctx context.Context, journal domain.Journal, ids []int64) domain.BatchReport {
	return p.mark(ctx, journal, ids, domain.ActionMarkRegistered, p.status.MarkRegistered)
}

// MarkUnregistered queues articles for the next scheduled deposit.
func (p *Pipeline) MarkUnregistered(ctx context.Context, journal domain.Journal, ids []int64) domain.BatchReport {
	return p.mark(ctx, journal, ids, domain.ActionMarkUnregistered, p.status.MarkUnregistered)
}

func (p *Pipeline) mark(
	ctx context.Context,
	journal domain.Journal,
	ids []int64,
	action domain.Action,
	apply func(context.Context, int64) error,
) domain.BatchReport {
	report := domain.BatchReport{JobID: uuid.NewString(), Action: action, Journal: journal}
	logger := p.batchLogger(report.JobID, action, journal)

	for _, id := range ids {
		_, err := p.ownedArticle(ctx, journal, id)
		if err == nil {
			err = apply(ctx, id)
		}
		if err != nil {
			logger.Error("status update failed", "article_id", id, "error", err)
		}
		report.Outcomes = append(report.Outcomes, domain.Outcome{ArticleID: id, Err: err})
	}

	logger.Info("status batch finished", "updated", report.Succeeded(), "failed", len(report.Failed()))
	return report
}

// RegisterPending deposits every pending article of every journal with
// complete settings and automatic registration enabled. A failing journal
// does not stop the others; their errors are joined.
func (p *Pipeline) RegisterPending(ctx context.Context) ([]domain.BatchReport, error) {
	journals, err := p.articles.Journals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}

	var (
		reports []domain.BatchReport
		errs    []error
	)
	for _, journal := range journals {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		logger := p.logger.With("journal", journal.Path)

		settings, err := p.settings.DepositSettings(ctx, journal.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("load deposit settings of %s: %w", journal.Path, err))
			continue
		}
		if !settings.AutoRegister() {
			logger.Debug("journal skipped", "reason", "automatic registration disabled or settings incomplete")
			continue
		}

		ids, err := p.articles.ArticleIDsByStatus(ctx, journal.ID, domain.PendingStatuses())
		if err != nil {
			errs = append(errs, fmt.Errorf("list pending articles of %s: %w", journal.Path, err))
			continue
		}
		if len(ids) == 0 {
			logger.Debug("no pending articles")
			continue
		}

		report, err := p.Deposit(ctx, journal, ids)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, report)
	}

	return reports, errors.Join(errs...)
}

// StatusMessage returns the stored failure text of a Failed article and an
// empty string for every other status.
func (p *Pipeline) StatusMessage(ctx context.Context, id int64) (string, error) {
	record, err := p.status.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if record.Status != domain.StatusFailed {
		return "", nil
	}
	return record.LastError, nil
}

// Status returns the stored status record of an article.
func (p *Pipeline) Status(ctx context.Context, id int64) (domain.StatusRecord, error) {
	return p.status.Get(ctx, id)
}
