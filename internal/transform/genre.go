package transform

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

// GND authority ids of the genre keywords.
const (
	ReviewGND    = "/gnd/4049712-4"
	ObituaryGND  = "/gnd/4128540-2"
	InterviewGND = "/gnd/4027503-6"
)

const (
	genreSource       = "gnd-content"
	reviewRelation    = "Rezension von"
	reviewedPPNPrefix = "(DE-627)"
)

// GenreSet records which genre keywords an article carries.
type GenreSet struct {
	Review    bool
	Obituary  bool
	Interview bool
}

// DetectGenres scans the catalog-locale keywords for genre authority ids.
func DetectGenres(keywords []string) GenreSet {
	joined := strings.Join(keywords, ",")
	return GenreSet{
		Review:    strings.Contains(joined, ReviewGND),
		Obituary:  strings.Contains(joined, ObituaryGND),
		Interview: strings.Contains(joined, InterviewGND),
	}
}

func genreTerm(term, gndID string) marc.DataField {
	field := marc.NewDataField("655", ' ', '7')
	field.Add('a', term)
	field.Add('0', gndPrefix+gndID)
	field.Add('2', genreSource)
	return field
}

// ReviewReference converts one cross-reference into a 787 field. A value in
// "$<code><value>" form is split into subfields; anything else is a bare PPN.
// Codes outside [a-z0-9] are rejected.
func ReviewReference(reference string) (marc.DataField, error) {
	field := marc.NewDataField("787", '0', '8')
	field.Add('i', reviewRelation)

	if !strings.Contains(reference, "$") {
		field.Add('w', reviewedPPNPrefix+strings.TrimSpace(reference))
		return field, nil
	}

	for _, part := range strings.Split(reference, "$") {
		if part == "" {
			continue
		}
		code, size := utf8.DecodeRuneInString(part)
		if !marc.ValidSubfieldCode(code) {
			return marc.DataField{}, fmt.Errorf("invalid subfield code %q", code)
		}
		field.Add(byte(code), strings.TrimSpace(part[size:]))
	}
	return field, nil
}

// GenreFields builds the review, obituary and interview blocks in that order.
func GenreFields(article domain.Article, genres GenreSet) ([]marc.DataField, error) {
	var fields []marc.DataField

	if genres.Review {
		if len(article.ReviewReferences) == 0 {
			return nil, &domain.MissingFieldError{SubmissionID: article.ID, Field: "review reference (PPN)"}
		}
		fields = append(fields, genreTerm("Rezension", "4049712-4"))
		for _, reference := range article.ReviewReferences {
			field, err := ReviewReference(reference)
			if err != nil {
				return nil, &domain.MalformedReferenceError{SubmissionID: article.ID, Reference: reference, Err: err}
			}
			fields = append(fields, field)
		}
	}
	if genres.Obituary {
		fields = append(fields, genreTerm("Nachruf", "4128540-2"))
	}
	if genres.Interview {
		fields = append(fields, genreTerm("Interview", "4027503-6"))
	}

	return fields, nil
}
