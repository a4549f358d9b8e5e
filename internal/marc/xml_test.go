package marc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func sampleRecord() *Record {
	doi := NewDataField("024", '7', ' ')
	doi.Add('2', "doi").Add('a', "10.1234/zfg.42")

	title := NewDataField("245", '1', '0')
	title.Add('a', "Kirche & Staat <1848>").Add('b', "").Add('c', "Anna Schmidt")

	access := NewDataField("856", '4', '0')
	access.Add('u', "https://doi.org/10.1234/zfg.42").Add('x', "Resolving-System")

	record := &Record{
		Leader: "00000naa a2200000uc 4500",
		Control: []ControlField{
			{Tag: "001", Value: "42"},
			{Tag: "003", Value: "DE-24"},
			{Tag: "005", Value: "20250304101112.9"},
			{Tag: "007", Value: "cr||||||||||||"},
			{Tag: "008", Value: "250304s2024||||gw |||| ||||| ||||| ger||"},
		},
	}
	record.Append(doi, title, access)
	return record
}

func TestSerializeDocumentShape(t *testing.T) {
	t.Parallel()

	out, err := Serialize(sampleRecord())
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}

	text := string(out)
	if !strings.HasPrefix(text, `<?xml version="1.0" encoding="utf-8"?>`) {
		t.Fatalf("missing xml declaration: %s", text[:40])
	}
	for _, fragment := range []string{
		`<record xmlns="http://www.loc.gov/MARC21/slim"`,
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`,
		`xsi:schemaLocation="http://www.loc.gov/MARC21/slim http://www.loc.gov/standards/marcxml/schema/MARC21slim.xsd"`,
		`<datafield tag="024" ind1="7" ind2=" ">`,
		`<subfield code="a">Kirche &amp; Staat &lt;1848&gt;</subfield>`,
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("output lacks %q:\n%s", fragment, text)
		}
	}
}

func TestSerializePreservesOrder(t *testing.T) {
	t.Parallel()

	out, err := Serialize(sampleRecord())
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if got := strings.TrimSpace(doc.Find("leader").Text()); got != "00000naa a2200000uc 4500" {
		t.Fatalf("unexpected leader: %q", got)
	}

	var controlTags []string
	doc.Find("controlfield").Each(func(_ int, s *goquery.Selection) {
		tag, _ := s.Attr("tag")
		controlTags = append(controlTags, tag)
	})
	if strings.Join(controlTags, ",") != "001,003,005,007,008" {
		t.Fatalf("unexpected control field order: %v", controlTags)
	}

	var dataTags []string
	doc.Find("datafield").Each(func(_ int, s *goquery.Selection) {
		tag, _ := s.Attr("tag")
		dataTags = append(dataTags, tag)
	})
	if strings.Join(dataTags, ",") != "024,245,856" {
		t.Fatalf("unexpected data field order: %v", dataTags)
	}

	var codes []string
	doc.Find(`datafield[tag="245"] subfield`).Each(func(_ int, s *goquery.Selection) {
		code, _ := s.Attr("code")
		codes = append(codes, code)
	})
	if strings.Join(codes, ",") != "a,c" {
		t.Fatalf("unexpected 245 subfields: %v", codes)
	}
}

func TestSerializeIsDeterministic(t *testing.T) {
	t.Parallel()

	record := sampleRecord()
	first, err := Serialize(record)
	if err != nil {
		t.Fatalf("first Serialize: %v", err)
	}
	second, err := Serialize(record)
	if err != nil {
		t.Fatalf("second Serialize: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("serializing twice produced different bytes")
	}
}

func TestSerializeRejectsBrokenRecords(t *testing.T) {
	t.Parallel()

	missingControl := sampleRecord()
	missingControl.Control = missingControl.Control[:4]
	if _, err := Serialize(missingControl); err == nil {
		t.Fatalf("expected error for four control fields")
	}

	reordered := sampleRecord()
	reordered.Control[0], reordered.Control[1] = reordered.Control[1], reordered.Control[0]
	if _, err := Serialize(reordered); err == nil {
		t.Fatalf("expected error for out-of-order control fields")
	}

	if _, err := Serialize(nil); err == nil {
		t.Fatalf("expected error for nil record")
	}

	for _, code := range []byte{0, ' ', 'A', 0xC3, '$'} {
		badCode := sampleRecord()
		badCode.Fields[0].Subfields[0].Code = code
		if _, err := Serialize(badCode); err == nil {
			t.Fatalf("expected error for subfield code %q", code)
		}
	}
}

func TestValidSubfieldCode(t *testing.T) {
	t.Parallel()

	for _, code := range "az09" {
		if !ValidSubfieldCode(code) {
			t.Fatalf("code %q should be valid", code)
		}
	}
	for _, code := range "Z ä$\x00" {
		if ValidSubfieldCode(code) {
			t.Fatalf("code %q should be invalid", code)
		}
	}
}

func TestDataFieldAddSkipsEmptyValues(t *testing.T) {
	t.Parallel()

	field := NewDataField("773", '1', '8')
	field.Add('g', "volume:12").Add('g', "").Add('g', "pages:1-10")

	if got := field.Values('g'); len(got) != 2 {
		t.Fatalf("expected two subfields, got %v", got)
	}
}
