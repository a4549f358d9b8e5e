package usecase

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/infrastructure/archive"
	"K10PlusExport/internal/infrastructure/storage"
	"K10PlusExport/internal/infrastructure/transport"
	"K10PlusExport/internal/ports"
	"K10PlusExport/internal/status"
	"K10PlusExport/internal/transform"
)

var (
	testZone = time.FixedZone("CET", 3600)
	testNow  = time.Date(2025, time.March, 4, 10, 11, 12, 0, testZone)
)

type recordingTransporter struct {
	mu        sync.Mutex
	deposited []string
	fail      func(name string) error
}

func (r *recordingTransporter) Deposit(_ context.Context, path string, _ domain.Credentials, _ domain.Endpoint) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	name := filepath.Base(path)

	r.mu.Lock()
	r.deposited = append(r.deposited, name)
	r.mu.Unlock()

	if r.fail != nil {
		return r.fail(name)
	}
	return nil
}

func (r *recordingTransporter) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := slices.Clone(r.deposited)
	slices.Sort(names)
	return names
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Publish(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, message)
	return nil
}

type missingTool struct{}

func (missingTool) Check() error {
	return &domain.ToolUnavailableError{Tool: "tar", Err: errors.New("not found")}
}

type fixture struct {
	repo        *storage.MemoryRepository
	transporter *recordingTransporter
	notifier    *recordingNotifier
	workDir     string
	journal     domain.Journal
}

func completeSettings() domain.DepositSettings {
	return domain.DepositSettings{
		Username:              "depositor",
		Password:              "secret",
		ServerAddress:         "sftp.example.org",
		FolderID:              "zfg",
		AutomaticRegistration: true,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:        storage.NewMemoryRepository(),
		transporter: &recordingTransporter{},
		notifier:    &recordingNotifier{},
		workDir:     t.TempDir(),
		journal:     domain.Journal{ID: 3, Path: "zfg", Name: "Zeitschrift für Geschichte", ZDBID: "2123456-7"},
	}
	f.repo.AddJournal(f.journal, completeSettings())
	return f
}

func (f *fixture) pipeline(overrides func(*PipelineDeps)) *Pipeline {
	deps := PipelineDeps{
		Articles:    f.repo,
		Settings:    f.repo,
		Status:      status.NewStore(f.repo, nil),
		Transformer: transform.NewTransformer(transform.Options{Location: testZone, Now: func() time.Time { return testNow }}),
		Packager:    archive.NewNative(),
		Archive:     archive.NewNative(),
		Transporter: f.transporter,
		Notifier:    f.notifier,
		WorkDir:     f.workDir,
		Workers:     2,
		Location:    testZone,
		Now:         func() time.Time { return testNow },
	}
	if overrides != nil {
		overrides(&deps)
	}
	return NewPipeline(deps)
}

func (f *fixture) addArticle(id int64, edit func(*domain.Article)) {
	article := domain.Article{
		ID:            id,
		Title:         "Über Grenzen",
		DatePublished: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		CopyrightYear: "2024",
		DOI:           "10.1234/zfg.1",
		Pages:         "1-10",
		Contributors: []domain.Contributor{
			{ID: 1, RoleAbbrev: "au", GivenName: "Anna", FamilyName: "Schmidt"},
		},
		Keywords: map[string][]string{
			domain.KeywordLocale: {"Geschichte https://d-nb.info/gnd/4020517-4"},
		},
		Galleys: []domain.Galley{{Label: "PDF", Locale: "de_DE"}},
		Issue:   domain.Issue{Volume: "12", Number: "3"},
		Journal: f.journal,
		URL:     "https://journals.example.org/zfg/article/view/1",
	}
	if edit != nil {
		edit(&article)
	}
	f.repo.AddArticle(article)
}

func (f *fixture) status(t *testing.T, id int64) domain.StatusRecord {
	t.Helper()

	record, err := status.NewStore(f.repo, nil).Get(context.Background(), id)
	require.NoError(t, err)
	return record
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left behind")
}

func TestDepositIsolatesRecordFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)
	f.addArticle(2, func(a *domain.Article) { a.DOI = "" })
	f.addArticle(3, nil)

	report, err := f.pipeline(nil).Deposit(context.Background(), f.journal, []int64{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded())
	require.Len(t, report.Failed(), 1)
	failed := report.Failed()[0]
	assert.Equal(t, int64(2), failed.ArticleID)

	var missing *domain.MissingFieldError
	require.ErrorAs(t, failed.Err, &missing)
	assert.Equal(t, "DOI", missing.Field)

	assert.Equal(t, domain.StatusRegistered, f.status(t, 1).Status)
	assert.Equal(t, domain.StatusRegistered, f.status(t, 3).Status)
	record := f.status(t, 2)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Equal(t, "submission 2: missing DOI", record.LastError)

	assert.Equal(t, []string{
		"k10Plus-20250304-101112-articles-1.xml",
		"k10Plus-20250304-101112-articles-3.xml",
	}, f.transporter.names())
	assertDirEmpty(t, f.workDir)

	require.Len(t, f.notifier.messages, 1)
	assert.True(t, strings.HasPrefix(f.notifier.messages[0],
		"K10plus deposit Zeitschrift fur Geschichte ("), f.notifier.messages[0])
	assert.Contains(t, f.notifier.messages[0], "2 registered, 1 failed")
	assert.Contains(t, f.notifier.messages[0], "- article 2: submission 2: missing DOI")
}

type zeroAcknowledged struct{}

func (zeroAcknowledged) Upload(string, io.Reader) (int64, error) {
	return 0, nil
}

func (zeroAcknowledged) Close() error {
	return nil
}

func TestDepositZeroByteTransferMarksFailed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)

	sftp := transport.NewWithConnector(func(context.Context, domain.Endpoint, domain.Credentials) (transport.Connection, error) {
		return zeroAcknowledged{}, nil
	}, nil)
	pipeline := f.pipeline(func(d *PipelineDeps) { d.Transporter = sftp })

	report, err := pipeline.Deposit(context.Background(), f.journal, []int64{1})
	require.NoError(t, err)
	require.Len(t, report.Failed(), 1)

	var transportErr *domain.TransportError
	require.ErrorAs(t, report.Failed()[0].Err, &transportErr)

	record := f.status(t, 1)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Contains(t, record.LastError, "server acknowledged zero bytes")

	message, err := pipeline.StatusMessage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, record.LastError, message)
}

func TestDepositRequiresCompleteSettings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	journal := domain.Journal{ID: 4, Path: "nosftp"}
	f.repo.AddJournal(journal, domain.DepositSettings{Username: "u"})

	_, err := f.pipeline(nil).Deposit(context.Background(), journal, []int64{1})
	assert.ErrorIs(t, err, ErrDepositNotConfigured)
	assert.Empty(t, f.transporter.names())
}

func TestExportSingleArticleStreamsXML(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)

	var out bytes.Buffer
	name, err := f.pipeline(nil).Export(context.Background(), f.journal, []int64{1}, &out)
	require.NoError(t, err)

	assert.Equal(t, "k10Plus-20250304-101112-articles-1.xml", name)
	assert.True(t, strings.HasPrefix(out.String(), `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, out.String(), `<controlfield tag="001">1</controlfield>`)
	assertDirEmpty(t, f.workDir)
	assert.Equal(t, domain.StatusNotDeposited, f.status(t, 1).Status)
}

func TestExportSeveralArticlesStreamsArchive(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, id := range []int64{1, 2, 3} {
		f.addArticle(id, nil)
	}

	var out bytes.Buffer
	name, err := f.pipeline(nil).Export(context.Background(), f.journal, []int64{1, 2, 3}, &out)
	require.NoError(t, err)
	assert.Equal(t, "k10Plus-20250304-101112-articles.tar.gz", name)

	gz, err := gzip.NewReader(&out)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var entries []string
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		entries = append(entries, header.Name)
	}
	slices.Sort(entries)
	assert.Equal(t, []string{
		"k10Plus-20250304-101112-articles-1.xml",
		"k10Plus-20250304-101112-articles-2.xml",
		"k10Plus-20250304-101112-articles-3.xml",
	}, entries)
	assertDirEmpty(t, f.workDir)
}

func TestExportAbortsOnFailingRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)
	f.addArticle(2, func(a *domain.Article) {
		a.Keywords[domain.KeywordLocale] = []string{"Geschichte"}
	})

	var out bytes.Buffer
	name, err := f.pipeline(nil).Export(context.Background(), f.journal, []int64{1, 2}, &out)

	var malformed *domain.MalformedKeywordError
	require.ErrorAs(t, err, &malformed)
	assert.Empty(t, name)
	assert.Zero(t, out.Len())
	assertDirEmpty(t, f.workDir)

	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], "K10plus export Zeitschrift fur Geschichte failed")
}

func TestExportChecksArchiveCapability(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)

	pipeline := f.pipeline(func(d *PipelineDeps) { d.Archive = missingTool{} })
	_, err := pipeline.Export(context.Background(), f.journal, []int64{1}, io.Discard)

	var unavailable *domain.ToolUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestRegisterPendingSelectsEligibleRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	seeded := map[int64]domain.DepositStatus{
		1: domain.StatusNotDeposited,
		2: domain.StatusFailed,
		3: domain.StatusMarkedUnregistered,
		4: domain.StatusRegistered,
		5: domain.StatusMarkedRegistered,
	}
	for id, st := range seeded {
		f.addArticle(id, nil)
		if st != domain.StatusNotDeposited {
			require.NoError(t, f.repo.SaveStatus(ctx, id, domain.StatusRecord{Status: st}))
		}
	}

	manual := domain.Journal{ID: 5, Path: "manual", ZDBID: "1"}
	manualSettings := completeSettings()
	manualSettings.AutomaticRegistration = false
	f.repo.AddJournal(manual, manualSettings)
	f.addArticle(50, func(a *domain.Article) { a.Journal = manual })

	incomplete := domain.Journal{ID: 6, Path: "incomplete", ZDBID: "2"}
	incompleteSettings := completeSettings()
	incompleteSettings.Password = ""
	f.repo.AddJournal(incomplete, incompleteSettings)
	f.addArticle(60, func(a *domain.Article) { a.Journal = incomplete })

	reports, err := f.pipeline(nil).RegisterPending(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, f.journal.ID, reports[0].Journal.ID)

	assert.Equal(t, []string{
		"k10Plus-20250304-101112-articles-1.xml",
		"k10Plus-20250304-101112-articles-2.xml",
		"k10Plus-20250304-101112-articles-3.xml",
	}, f.transporter.names())

	for _, id := range []int64{1, 2, 3, 4} {
		assert.Equal(t, domain.StatusRegistered, f.status(t, id).Status, "article %d", id)
	}
	assert.Equal(t, domain.StatusMarkedRegistered, f.status(t, 5).Status)
	assert.Equal(t, domain.StatusNotDeposited, f.status(t, 50).Status)
	assert.Equal(t, domain.StatusNotDeposited, f.status(t, 60).Status)
}

func TestFailedRecordIsRetriedOnNextRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)

	attempts := 0
	f.transporter.fail = func(string) error {
		attempts++
		if attempts == 1 {
			return &domain.TransportError{Endpoint: "sftp://sftp.example.org:22/zfg", Diagnostic: "connection reset"}
		}
		return nil
	}
	pipeline := f.pipeline(func(d *PipelineDeps) { d.Workers = 1 })

	_, err := pipeline.RegisterPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, f.status(t, 1).Status)

	_, err = pipeline.RegisterPending(context.Background())
	require.NoError(t, err)
	record := f.status(t, 1)
	assert.Equal(t, domain.StatusRegistered, record.Status)
	assert.Empty(t, record.LastError)
}

func TestMarkActions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.addArticle(7, nil)
	f.addArticle(8, nil)
	pipeline := f.pipeline(nil)
	require.NoError(t, f.repo.SaveStatus(ctx, 7, domain.StatusRecord{Status: domain.StatusFailed, LastError: "timeout"}))

	report := pipeline.MarkRegistered(ctx, f.journal, []int64{7, 8})
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, domain.ActionMarkRegistered, report.Action)
	assert.Equal(t, domain.StatusRecord{Status: domain.StatusMarkedRegistered}, stripTime(f.status(t, 7)))

	message, err := pipeline.StatusMessage(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, message)

	report = pipeline.MarkUnregistered(ctx, f.journal, []int64{7})
	assert.Equal(t, 1, report.Succeeded())
	assert.Equal(t, domain.StatusMarkedUnregistered, f.status(t, 7).Status)
}

func (f *fixture) addForeignArticle(id int64) domain.Journal {
	other := domain.Journal{ID: 9, Path: "other", ZDBID: "3"}
	f.repo.AddJournal(other, completeSettings())
	f.addArticle(id, func(a *domain.Article) { a.Journal = other })
	return other
}

func TestDepositRejectsArticlesOfOtherJournals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)
	f.addForeignArticle(77)

	report, err := f.pipeline(nil).Deposit(context.Background(), f.journal, []int64{1, 77})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded())
	require.Len(t, report.Failed(), 1)
	failed := report.Failed()[0]
	assert.Equal(t, int64(77), failed.ArticleID)

	var foreign *domain.ForeignArticleError
	require.ErrorAs(t, failed.Err, &foreign)
	assert.Equal(t, "other", foreign.Owner)
	assert.Equal(t, "zfg", foreign.Journal)

	assert.Equal(t, []string{ExportFileName("20250304-101112", 1)}, f.transporter.names())
	assert.Equal(t, domain.StatusNotDeposited, f.status(t, 77).Status)
}

func TestExportRejectsArticlesOfOtherJournals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)
	f.addForeignArticle(77)

	var out bytes.Buffer
	_, err := f.pipeline(nil).Export(context.Background(), f.journal, []int64{1, 77}, &out)

	var foreign *domain.ForeignArticleError
	require.ErrorAs(t, err, &foreign)
	assert.Zero(t, out.Len())
	assertDirEmpty(t, f.workDir)
}

func TestMarkRejectsArticlesOfOtherJournals(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	other := f.addForeignArticle(77)

	report := f.pipeline(nil).MarkRegistered(ctx, f.journal, []int64{77, 404})
	assert.Zero(t, report.Succeeded())
	require.Len(t, report.Failed(), 2)

	var foreign *domain.ForeignArticleError
	assert.ErrorAs(t, report.Failed()[0].Err, &foreign)
	assert.ErrorIs(t, report.Failed()[1].Err, storage.ErrNotFound)
	assert.Equal(t, domain.StatusNotDeposited, f.status(t, 77).Status)

	report = f.pipeline(nil).MarkRegistered(ctx, other, []int64{77})
	assert.Equal(t, 1, report.Succeeded())
	assert.Equal(t, domain.StatusMarkedRegistered, f.status(t, 77).Status)
}

func stripTime(record domain.StatusRecord) domain.StatusRecord {
	record.UpdatedAt = time.Time{}
	return record
}

func TestSchedulerRunOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addArticle(1, nil)

	scheduler := NewScheduler(nil, f.pipeline(nil), nil)
	scheduler.RunOnce(context.Background(), testNow)

	assert.Equal(t, domain.StatusRegistered, f.status(t, 1).Status)
	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Stop(context.Background()))
}

func TestFoldASCII(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Zeitschrift für Geschichte": "Zeitschrift fur Geschichte",
		"Straße – Œuvre":             "Strasse - OEuvre",
		"Café „Zentral“":             `Cafe "Zentral"`,
		"日本":                         "??",
	}
	for in, want := range cases {
		assert.Equal(t, want, foldASCII(in), in)
	}
}

var _ ports.Transporter = (*recordingTransporter)(nil)
