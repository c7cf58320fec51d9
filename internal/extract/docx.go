package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// document.xml structure, body-level paragraphs and tables only.
// Paragraphs nested inside table cells are reached through the table
// traversal, matching the paragraphs-then-tables document order.
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
		Tables     []docxTable     `xml:"tbl"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Value string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

// extractDocx pulls paragraph text and table rows out of the Word
// document archive. Table rows render as cell texts joined by " | ".
func extractDocx(content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %v", err)
	}

	var doc docxDocument
	found := false
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %v", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %v", err)
		}
		if err := xml.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("parse document.xml: %v", err)
		}
		found = true
		break
	}
	if !found {
		return "", fmt.Errorf("document.xml missing from archive")
	}

	var parts []string
	for _, para := range doc.Body.Paragraphs {
		if text := paragraphText(para); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	for _, table := range doc.Body.Tables {
		for _, row := range table.Rows {
			cells := make([]string, 0, len(row.Cells))
			blank := true
			for _, cell := range row.Cells {
				text := strings.TrimSpace(cellText(cell))
				if text != "" {
					blank = false
				}
				cells = append(cells, text)
			}
			if blank {
				continue
			}
			parts = append(parts, strings.Join(cells, " | "))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text could be extracted from the docx file")
	}
	return strings.Join(parts, "\n\n"), nil
}

func paragraphText(para docxParagraph) string {
	var sb strings.Builder
	for _, run := range para.Runs {
		for _, text := range run.Text {
			sb.WriteString(text.Value)
		}
	}
	return sb.String()
}

func cellText(cell docxCell) string {
	lines := make([]string, 0, len(cell.Paragraphs))
	for _, para := range cell.Paragraphs {
		lines = append(lines, paragraphText(para))
	}
	return strings.Join(lines, "\n")
}
