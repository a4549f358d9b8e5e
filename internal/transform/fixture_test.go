package transform

import (
	"time"

	"K10PlusExport/internal/domain"
)

var (
	testZone = time.FixedZone("CET", 3600)
	testNow  = time.Date(2025, time.March, 4, 10, 11, 12, 987_000_000, testZone)
)

func newTestTransformer() *Transformer {
	return NewTransformer(Options{
		Location: testZone,
		Now:      func() time.Time { return testNow },
	})
}

func sampleArticle() domain.Article {
	return domain.Article{
		ID:            42,
		PublicationID: 7,
		Title:         "Über Grenzen",
		Subtitle:      "Eine Fallstudie",
		DatePublished: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		CopyrightYear: "2024",
		DOI:           "10.1234/zfg.42",
		Pages:         "1-10",
		Contributors: []domain.Contributor{
			{ID: 1, RoleAbbrev: "au", GivenName: "Anna", FamilyName: "Schmidt", GNDID: "https://d-nb.info/gnd/118540238"},
			{ID: 2, RoleAbbrev: "trans", GivenName: "Jean", FamilyName: "Dupont"},
		},
		Keywords: map[string][]string{
			domain.KeywordLocale: {"Geschichte [https://d-nb.info/gnd/4020517-4]"},
		},
		Galleys: []domain.Galley{{Label: "PDF", Locale: "en_US"}},
		Issue:   domain.Issue{Volume: "12", Number: "3"},
		Journal: domain.Journal{
			ID:         3,
			Path:       "zfg",
			ZDBID:      "2123456-7",
			LicenseURL: "https://creativecommons.org/licenses/by/4.0/",
		},
		URL: "https://journals.example.org/zfg/article/view/42",
	}
}
