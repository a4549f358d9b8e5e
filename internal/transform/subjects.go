package transform

import (
	"strings"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

// SubjectFields builds one 650 per normed keyword. The review keyword is
// expressed through the genre block and gets no 650 of its own.
func SubjectFields(article domain.Article) ([]marc.DataField, error) {
	var fields []marc.DataField
	for _, keyword := range article.LocalizedKeywords() {
		id, ok := GNDIdentifier(keyword)
		if keyword == "" || !strings.Contains(keyword, "/gnd/") || !ok {
			return nil, &domain.MalformedKeywordError{SubmissionID: article.ID, Keyword: keyword}
		}
		if strings.Contains(keyword, ReviewGND) {
			continue
		}
		field := marc.NewDataField("650", '0', '7')
		field.Add('0', gndPrefix+id)
		fields = append(fields, field)
	}
	return fields, nil
}
