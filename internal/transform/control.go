package transform

import (
	"strconv"
	"time"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

const (
	leader            = "00000naa a2200000uc 4500"
	electronicCode    = "cr||||||||||||"
	fixedDataMiddle   = "||||gw |||| ||||| ||||| "
	fixedDataTrailer  = "||"
	unknownYear       = "uuuu"
	transactionLayout = "20060102150405.0"
	pdfGalleyLabel    = "PDF"
)

// LanguageCode derives the MARC language code from the locale of the PDF
// galley. French and English are recognised; everything else, including an
// article without a PDF galley, defaults to German.
func LanguageCode(galleys []domain.Galley) string {
	locale := ""
	for _, g := range galleys {
		if g.Label == pdfGalleyLabel {
			locale = g.Locale
		}
	}

	switch locale {
	case "fr_FR":
		return "fre"
	case "en_US":
		return "eng"
	default:
		return "ger"
	}
}

// TransactionTimestamp formats 005: yyyyMMddHHmmss.f with the fraction
// truncated to tenths.
func TransactionTimestamp(now time.Time) string {
	return now.Format(transactionLayout)
}

// PublicationYear returns the four digit year for 008, falling back to the
// copyright year and then to the MARC "unknown" marker.
func PublicationYear(article domain.Article) string {
	if !article.DatePublished.IsZero() {
		return strconv.Itoa(article.DatePublished.Year())
	}
	if len(article.CopyrightYear) == 4 {
		return article.CopyrightYear
	}
	return unknownYear
}

// FixedLengthData builds the 008 field.
func FixedLengthData(now time.Time, publicationYear, languageCode string) string {
	return now.Format("060102") + "s" + publicationYear + fixedDataMiddle + languageCode + fixedDataTrailer
}

// ControlFields builds 001, 003, 005, 007 and 008 in order. now must already
// be in the catalog time zone.
func ControlFields(article domain.Article, institution string, now time.Time, languageCode string) []marc.ControlField {
	return []marc.ControlField{
		{Tag: "001", Value: strconv.FormatInt(article.ID, 10)},
		{Tag: "003", Value: institution},
		{Tag: "005", Value: TransactionTimestamp(now)},
		{Tag: "007", Value: electronicCode},
		{Tag: "008", Value: FixedLengthData(now, PublicationYear(article), languageCode)},
	}
}
