package transform

import (
	"regexp"
	"strings"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

// NoAuthorSentinel is entered as given name when an article has no author.
const NoAuthorSentinel = "autorenlos"

const gndPrefix = "(DE-588)"

var gndExpr = regexp.MustCompile(`gnd/([0-9A-Za-z-]+)`)

// GNDIdentifier extracts the identifier following "gnd/" in an authority URI.
func GNDIdentifier(value string) (string, bool) {
	match := gndExpr.FindStringSubmatch(value)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// EntrySplit is the outcome of primary entry selection.
type EntrySplit struct {
	Primary    *domain.Contributor
	PrimaryTag string
	Added      []domain.Contributor
}

// SplitEntries picks the single main entry and leaves every other
// contributor for the added entries. Contributors are scanned in order; the
// first interviewee wins, an author wins only if the article has no
// interviewee at all, and a corporate author wins as 110.
func SplitEntries(contributors []domain.Contributor) EntrySplit {
	hasInterviewee := false
	for _, c := range contributors {
		if ParseRole(c.RoleAbbrev) == RoleInterviewee {
			hasInterviewee = true
			break
		}
	}

	split := EntrySplit{}
	primaryIndex := -1
	for i, c := range contributors {
		switch ParseRole(c.RoleAbbrev) {
		case RoleInterviewee:
			primaryIndex, split.PrimaryTag = i, "100"
		case RoleAuthor:
			if !hasInterviewee {
				primaryIndex, split.PrimaryTag = i, "100"
			}
		case RoleCorporateAuthor:
			primaryIndex, split.PrimaryTag = i, "110"
		}
		if primaryIndex >= 0 {
			break
		}
	}

	for i, c := range contributors {
		if i == primaryIndex {
			primary := c
			split.Primary = &primary
			continue
		}
		split.Added = append(split.Added, c)
	}
	return split
}

// AddedEntryTag returns 710 for corporate referenced authors and 700 otherwise.
func AddedEntryTag(c domain.Contributor) string {
	if ParseRole(c.RoleAbbrev) == RoleCorporateReferencedAuthor {
		return "710"
	}
	return "700"
}

// IsNoAuthor reports whether the contributor is the "no author" placeholder.
func IsNoAuthor(c domain.Contributor) bool {
	return strings.TrimSpace(c.GivenName) == NoAuthorSentinel
}

// NameEntry builds a 100/110/700/710 field. ok is false for the no-author
// placeholder, which yields no field at all.
func NameEntry(tag string, c domain.Contributor) (marc.DataField, bool) {
	if IsNoAuthor(c) {
		return marc.DataField{}, false
	}

	field := marc.NewDataField(tag, '1', ' ')

	name := c.GivenName
	if c.FamilyName != "" {
		name = c.FamilyName + ", " + c.GivenName
	}
	field.Add('a', name)

	relator := RelatorFor(ParseRole(c.RoleAbbrev))
	field.Add('e', relator.Term)
	field.Add('4', relator.Code)

	if c.GNDID != "" {
		id, ok := GNDIdentifier(c.GNDID)
		if !ok {
			id = strings.TrimSpace(c.GNDID)
		}
		field.Add('0', gndPrefix+id)
	}

	return field, true
}

// PrimaryEntry returns the 100/110 field of the split, if any.
func PrimaryEntry(split EntrySplit) []marc.DataField {
	if split.Primary == nil {
		return nil
	}
	field, ok := NameEntry(split.PrimaryTag, *split.Primary)
	if !ok {
		return nil
	}
	return []marc.DataField{field}
}

// AddedEntries returns the 700/710 fields in contributor order.
func AddedEntries(split EntrySplit) []marc.DataField {
	fields := make([]marc.DataField, 0, len(split.Added))
	for _, c := range split.Added {
		if field, ok := NameEntry(AddedEntryTag(c), c); ok {
			fields = append(fields, field)
		}
	}
	return fields
}
