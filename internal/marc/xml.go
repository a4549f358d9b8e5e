package marc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

const (
	Namespace           = "http://www.loc.gov/MARC21/slim"
	SchemaInstance      = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocation      = "http://www.loc.gov/standards/marcxml/schema/MARC21slim.xsd"
	rootElement         = "record"
	indentPrefix        = ""
	indentString        = "  "
	declarationEncoding = `<?xml version="1.0" encoding="utf-8"?>` + "\n"
)

// Serialize renders the record as a standalone MARC21-slim XML document.
func Serialize(record *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the XML document for record to w.
func Encode(w io.Writer, record *Record) error {
	if record == nil {
		return fmt.Errorf("marc: nil record")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	if _, err := io.WriteString(w, declarationEncoding); err != nil {
		return fmt.Errorf("write declaration: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent(indentPrefix, indentString)

	root := xml.StartElement{
		Name: xml.Name{Local: rootElement},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: Namespace},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: SchemaInstance},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: Namespace + " " + SchemaLocation},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("encode root: %w", err)
	}

	if err := encodeText(enc, xml.StartElement{Name: xml.Name{Local: "leader"}}, record.Leader); err != nil {
		return err
	}
	for _, cf := range record.Control {
		start := xml.StartElement{
			Name: xml.Name{Local: "controlfield"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "tag"}, Value: cf.Tag}},
		}
		if err := encodeText(enc, start, cf.Value); err != nil {
			return err
		}
	}
	for _, f := range record.Fields {
		if err := encodeDataField(enc, f); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("encode root end: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func encodeDataField(enc *xml.Encoder, f DataField) error {
	start := xml.StartElement{
		Name: xml.Name{Local: "datafield"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "tag"}, Value: f.Tag},
			{Name: xml.Name{Local: "ind1"}, Value: indicator(f.Ind1)},
			{Name: xml.Name{Local: "ind2"}, Value: indicator(f.Ind2)},
		},
	}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("encode datafield %s: %w", f.Tag, err)
	}
	for _, sf := range f.Subfields {
		sub := xml.StartElement{
			Name: xml.Name{Local: "subfield"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "code"}, Value: string(sf.Code)}},
		}
		if err := encodeText(enc, sub, sf.Value); err != nil {
			return fmt.Errorf("datafield %s: %w", f.Tag, err)
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("encode datafield %s end: %w", f.Tag, err)
	}
	return nil
}

func encodeText(enc *xml.Encoder, start xml.StartElement, text string) error {
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("encode %s: %w", start.Name.Local, err)
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return fmt.Errorf("encode %s text: %w", start.Name.Local, err)
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("encode %s end: %w", start.Name.Local, err)
	}
	return nil
}

func indicator(b byte) string {
	if b == 0 {
		return " "
	}
	return string(b)
}
