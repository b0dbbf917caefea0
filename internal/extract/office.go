// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// pdfExtractor reads the plain text of every page
type pdfExtractor struct{}

func (pdfExtractor) Name() string { return "pdf" }

func (pdfExtractor) Extensions() []string { return []string{".pdf"} }

func (pdfExtractor) Extract(content []byte) (pages []Page, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}

	texts := make([]string, r.NumPage())
	for i := range texts {
		p := r.Page(i + 1)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// unreadable pages stay empty so later page numbers still line up
			continue
		}
		texts[i] = text
	}
	return paginate(texts), nil
}

// docxExtractor reads paragraphs and table cells of a Word document as one page
type docxExtractor struct{}

func (docxExtractor) Name() string { return "docx" }

func (docxExtractor) Extensions() []string { return []string{".docx"} }

func (docxExtractor) Extract(content []byte) ([]Page, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if t := paragraphText(it); t != "" {
				lines = append(lines, t)
			}
		case *docx.Table:
			for _, row := range it.TableRows {
				var cells []string
				for _, cell := range row.TableCells {
					var parts []string
					for _, p := range cell.Paragraphs {
						if t := paragraphText(p); t != "" {
							parts = append(parts, t)
						}
					}
					cells = append(cells, strings.Join(parts, " "))
				}
				lines = append(lines, strings.Join(cells, "\t"))
			}
		}
	}
	return paginate([]string{strings.Join(lines, "\n")}), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// xlsxExtractor reads each sheet as one page, cells separated by tabs
type xlsxExtractor struct{}

func (xlsxExtractor) Name() string { return "xlsx" }

func (xlsxExtractor) Extensions() []string { return []string{".xlsx", ".xlsm"} }

func (xlsxExtractor) Extract(content []byte) ([]Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var texts []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var buf strings.Builder
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		texts = append(texts, buf.String())
	}
	return paginate(texts), nil
}
