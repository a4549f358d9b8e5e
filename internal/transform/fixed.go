package transform

import (
	"strings"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/marc"
)

// DefaultLicenseURL applies when the publication has no license URL.
const DefaultLicenseURL = "https://creativecommons.org/licenses/by/4.0/"

const (
	reproductionNote = "Elektronische Reproduktion der Druckausgabe"
	openAccessURI    = "http://purl.org/coar/access_right/c_abf2"
)

var licenseNames = map[string]string{
	"https://creativecommons.org/licenses/by-nc-nd/4.0": "CC Attribution-NonCommercial-NoDerivatives 4.0",
	"https://creativecommons.org/licenses/by-nc/4.0":    "CC Attribution-NonCommercial 4.0",
	"https://creativecommons.org/licenses/by-nc-sa/4.0": "CC Attribution-NonCommercial-ShareAlike 4.0",
	"https://creativecommons.org/licenses/by-nd/4.0":    "CC Attribution-NoDerivatives 4.0",
	"https://creativecommons.org/licenses/by/4.0":       "CC Attribution 4.0",
	"https://creativecommons.org/licenses/by-sa/4.0":    "CC Attribution-ShareAlike 4.0",
}

// LicenseName resolves a Creative Commons URL to its name. Unknown URLs are
// returned as given.
func LicenseName(url string) string {
	if url == "" {
		return ""
	}
	if name, ok := licenseNames[strings.TrimSuffix(strings.TrimSpace(url), "/")]; ok {
		return name
	}
	return url
}

// FixedFields builds 336, 337, 338, the optional 500 notes, 506 and 540.
func FixedFields(article domain.Article, institution string) []marc.DataField {
	content := marc.NewDataField("336", ' ', ' ')
	content.Add('a', "Text").Add('b', "txt").Add('2', "rdacontent")

	media := marc.NewDataField("337", ' ', ' ')
	media.Add('a', "Computermedien").Add('b', "c").Add('2', "rdamedia")

	carrier := marc.NewDataField("338", ' ', ' ')
	carrier.Add('a', "Online-Ressource").Add('b', "cr").Add('2', "rdacarrier")

	fields := []marc.DataField{content, media, carrier}

	if article.DigitalPub {
		note := marc.NewDataField("500", ' ', ' ')
		note.Add('a', reproductionNote)
		fields = append(fields, note)
	}
	if comment := strings.TrimSpace(article.CustomComment); comment != "" {
		note := marc.NewDataField("500", ' ', ' ')
		note.Add('a', comment)
		fields = append(fields, note)
	}

	access := marc.NewDataField("506", '0', ' ')
	access.Add('a', "Open Access").
		Add('e', "Controlled Vocabulary for Access Rights").
		Add('q', institution).
		Add('u', openAccessURI)
	fields = append(fields, access)

	licenseURL := article.LicenseURL
	if licenseURL == "" {
		licenseURL = DefaultLicenseURL
	}
	terms := marc.NewDataField("540", ' ', ' ')
	terms.Add('q', institution).
		Add('a', LicenseName(article.Journal.LicenseURL)).
		Add('u', licenseURL)
	fields = append(fields, terms)

	return fields
}
