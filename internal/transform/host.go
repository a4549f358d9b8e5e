package transform

import (
	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

const (
	doiResolver = "https://doi.org/"
	zdbPrefix   = "(DE-600)"
)

// IdentifierField builds 024 for the DOI.
func IdentifierField(article domain.Article) (marc.DataField, error) {
	if article.DOI == "" {
		return marc.DataField{}, &domain.MissingFieldError{SubmissionID: article.ID, Field: "DOI"}
	}
	field := marc.NewDataField("024", '7', ' ')
	field.Add('2', "doi").Add('a', article.DOI)
	return field, nil
}

// LanguageField builds 041.
func LanguageField(languageCode string) marc.DataField {
	field := marc.NewDataField("041", ' ', ' ')
	field.Add('a', languageCode)
	return field
}

// ProductionField builds 264 from the copyright year.
func ProductionField(article domain.Article) (marc.DataField, error) {
	if article.CopyrightYear == "" {
		return marc.DataField{}, &domain.MissingFieldError{SubmissionID: article.ID, Field: "copyright year"}
	}
	field := marc.NewDataField("264", ' ', '1')
	field.Add('c', article.CopyrightYear)
	return field, nil
}

// HostItemFields builds the two 773 fields: ZDB linkage, then enumeration.
func HostItemFields(article domain.Article) ([]marc.DataField, error) {
	if article.Journal.ZDBID == "" {
		return nil, &domain.MissingFieldError{SubmissionID: article.ID, Field: "journal ZDB id"}
	}
	linkage := marc.NewDataField("773", '0', '8')
	linkage.Add('i', "Enthalten in").Add('w', zdbPrefix+article.Journal.ZDBID)

	if article.CopyrightYear == "" && article.Pages == "" {
		return nil, &domain.MissingFieldError{SubmissionID: article.ID, Field: "pages or copyright year"}
	}
	enumeration := marc.NewDataField("773", '1', '8')
	enumeration.Add('g', labelled("volume:", article.Issue.Volume)).
		Add('g', labelled("year:", article.CopyrightYear)).
		Add('g', labelled("number:", article.Issue.Number)).
		Add('g', labelled("pages:", article.Pages))

	return []marc.DataField{linkage, enumeration}, nil
}

// AccessFields builds the two 856 fields: publisher landing page, then DOI
// resolver.
func AccessFields(article domain.Article) ([]marc.DataField, error) {
	if article.URL == "" {
		return nil, &domain.MissingFieldError{SubmissionID: article.ID, Field: "article URL"}
	}
	publisher := marc.NewDataField("856", '4', '0')
	publisher.Add('u', article.URL).Add('x', "Verlag").Add('z', "kostenfrei").Add('3', "Volltext")

	resolver := marc.NewDataField("856", '4', '0')
	resolver.Add('u', doiResolver+article.DOI).Add('x', "Resolving-System").Add('z', "kostenfrei").Add('3', "Volltext")

	return []marc.DataField{publisher, resolver}, nil
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + value
}
