package crawler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yosssi/gohtml"
)

// Prettify formats a page body for the dashboard preview. JSON is
// re-indented, XML is indented through etree, and HTML goes through gohtml.
// Bodies that match none of those come back unchanged.
func Prettify(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return []byte{}, nil
	}

	trimmed := bytes.TrimSpace(body)

	var jsonData any
	if err := json.Unmarshal(trimmed, &jsonData); err == nil {
		output, err := json.MarshalIndent(jsonData, "", "  ")
		if err != nil {
			return []byte{}, fmt.Errorf("remarshalling JSON : %w", err)
		}
		return output, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(trimmed); err == nil && doc.Root() != nil {
		doc.Indent(1)
		var output bytes.Buffer
		if _, err := doc.WriteTo(&output); err != nil {
			return []byte{}, fmt.Errorf("writing indented XML : %w", err)
		}
		return output.Bytes(), nil
	}

	contentType := mimetype.Detect(trimmed).String()
	if strings.Contains(contentType, "text/html") ||
		(bytes.HasPrefix(trimmed, []byte("<")) && !bytes.HasPrefix(trimmed, []byte("<?xml"))) {
		output := gohtml.FormatBytes(trimmed)
		if len(output) > 0 && !bytes.Equal(output, trimmed) {
			return output, nil
		}
	}

	return trimmed, nil
}
