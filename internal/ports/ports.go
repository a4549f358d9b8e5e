package ports

import (
	"context"
	"time"

	"K10PlusExport/internal/domain"
)

// ArticleRepository reads journal and article metadata from the publishing
// platform.
type ArticleRepository interface {
	Journals(ctx context.Context) ([]domain.Journal, error)
	Article(ctx context.Context, id int64) (domain.Article, error)
	ArticleIDsByStatus(ctx context.Context, journalID int64, statuses []domain.DepositStatus) ([]int64, error)
}

// SettingsStore returns the per-journal deposit configuration.
type SettingsStore interface {
	DepositSettings(ctx context.Context, journalID int64) (domain.DepositSettings, error)
}

// StatusRepository persists deposit status records. LoadStatus reports found
// == false for articles that were never written.
type StatusRepository interface {
	LoadStatus(ctx context.Context, articleID int64) (record domain.StatusRecord, found bool, err error)
	SaveStatus(ctx context.Context, articleID int64, record domain.StatusRecord) error
}

// Packager bundles serialized record files into one deposit artifact.
type Packager interface {
	Package(ctx context.Context, files []string, output string) (string, error)
}

// ArchiveCapability reports whether packaging can run on this host.
type ArchiveCapability interface {
	Check() error
}

// Transporter pushes one artifact to the catalog's SFTP drop.
type Transporter interface {
	Deposit(ctx context.Context, path string, credentials domain.Credentials, endpoint domain.Endpoint) error
}

// Notifier delivers operator messages to Telegram or other channels.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}

// Scheduler controls when scheduled registration runs.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
