package transform

import (
	"strings"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

// StatementOfResponsibility joins the names for 245 $c. It returns "" when no
// contributor qualifies or when a qualifying contributor is the no-author
// placeholder or lacks a given name.
func StatementOfResponsibility(contributors []domain.Contributor) string {
	var names []string
	for _, c := range contributors {
		if !contributesToStatement(ParseRole(c.RoleAbbrev)) {
			continue
		}
		given := c.GivenName
		if given == "" || IsNoAuthor(c) {
			return ""
		}
		if c.FamilyName != "" {
			names = append(names, given+" "+c.FamilyName)
		} else {
			names = append(names, given)
		}
	}
	return strings.Join(names, ", ")
}

// TitleStatement builds 245. Reviews get their title in square brackets.
func TitleStatement(article domain.Article, genres GenreSet) marc.DataField {
	title := article.Title
	if genres.Review {
		title = "[" + title + "]"
	}

	field := marc.NewDataField("245", '1', '0')
	field.Add('a', title)
	field.Add('b', article.Subtitle)
	field.Add('c', StatementOfResponsibility(article.Contributors))
	return field
}
