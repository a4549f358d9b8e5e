package domain

import "time"

// KeywordLocale is the locale whose keywords feed the catalog record.
const KeywordLocale = "de_DE"

// Article is the read-only snapshot of a published submission handed to the
// record transformer.
type Article struct {
	ID            int64
	PublicationID int64
	Title         string
	Subtitle      string
	DatePublished time.Time
	CopyrightYear string
	DOI           string
	Pages         string
	Contributors  []Contributor
	// Keywords maps a locale (e.g. de_DE) to its ordered keyword terms.
	Keywords         map[string][]string
	Galleys          []Galley
	Issue            Issue
	Journal          Journal
	LicenseURL       string
	DigitalPub       bool
	CustomComment    string
	URL              string
	ReviewReferences []string
}

// Contributor is one author-like entry of an article.
type Contributor struct {
	ID         int64  `json:"id"`
	RoleAbbrev string `json:"role"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	GNDID      string `json:"gndId,omitempty"`
}

// Galley is a rendition of the article (PDF, HTML, ...).
type Galley struct {
	Label  string `json:"label"`
	Locale string `json:"locale"`
}

// Issue carries the enumeration of the issue an article belongs to.
type Issue struct {
	Volume string
	Number string
}

// Journal is the organizational context owning articles and deposit settings.
type Journal struct {
	ID         int64
	Path       string
	Name       string
	ZDBID      string
	LicenseURL string
}

// LocalizedKeywords returns the keywords stored for the catalog locale.
func (a Article) LocalizedKeywords() []string {
	if a.Keywords == nil {
		return nil
	}
	return a.Keywords[KeywordLocale]
}
