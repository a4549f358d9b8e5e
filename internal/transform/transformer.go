// Package transform derives K10plus MARC21 records from journal articles.
//
// Each field group is built by its own rule function so the rules can be
// tested in isolation; Transformer only fixes their order.
package transform

import (
	"time"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

const (
	DefaultInstitution = "DE-24"
	DefaultTimezone    = "Europe/Berlin"
)

// Options configure a Transformer.
type Options struct {
	// Institution is the ISIL written to 003, 506 $q and 540 $q.
	Institution string
	// Location is the time zone of the 005/008 dates.
	Location *time.Location
	// Now overrides the transaction clock.
	Now func() time.Time
}

// Transformer builds bibliographic records. It is safe for concurrent use.
type Transformer struct {
	institution string
	location    *time.Location
	now         func() time.Time
}

// NewTransformer applies defaults to opts.
func NewTransformer(opts Options) *Transformer {
	t := &Transformer{
		institution: opts.Institution,
		location:    opts.Location,
		now:         opts.Now,
	}
	if t.institution == "" {
		t.institution = DefaultInstitution
	}
	if t.location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		t.location = loc
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Transform builds the full record for one article or returns the first
// MissingFieldError / MalformedKeywordError met. No partial record is
// returned.
func (t *Transformer) Transform(article domain.Article) (*marc.Record, error) {
	now := t.now().In(t.location)
	language := LanguageCode(article.Galleys)
	genres := DetectGenres(article.LocalizedKeywords())
	entries := SplitEntries(article.Contributors)

	record := &marc.Record{
		Leader:  leader,
		Control: ControlFields(article, t.institution, now, language),
	}

	identifier, err := IdentifierField(article)
	if err != nil {
		return nil, err
	}
	record.Append(identifier, LanguageField(language))
	record.Append(PrimaryEntry(entries)...)
	record.Append(TitleStatement(article, genres))

	production, err := ProductionField(article)
	if err != nil {
		return nil, err
	}
	record.Append(production)
	record.Append(FixedFields(article, t.institution)...)

	genreFields, err := GenreFields(article, genres)
	if err != nil {
		return nil, err
	}
	record.Append(genreFields...)

	subjects, err := SubjectFields(article)
	if err != nil {
		return nil, err
	}
	record.Append(subjects...)
	record.Append(AddedEntries(entries)...)

	host, err := HostItemFields(article)
	if err != nil {
		return nil, err
	}
	record.Append(host...)

	access, err := AccessFields(article)
	if err != nil {
		return nil, err
	}
	record.Append(access...)

	return record, nil
}
