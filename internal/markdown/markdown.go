// Package markdown renders the reddit-flavoured markdown the bot's
// messages and listing post are written in.
package markdown

import (
	"fmt"
	"strings"
)

// Paragraph terminates a block with a blank line.
func Paragraph(content string) string {
	return strings.TrimRight(content, "\n") + "\n\n"
}

// List renders a bullet list. ListItem values may nest one level.
func List(items []ListItem) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("* ")
		b.WriteString(item.Text)
		b.WriteString("\n")
		for _, sub := range item.Sub {
			b.WriteString("    * ")
			b.WriteString(sub)
			b.WriteString("\n")
		}
	}
	return Paragraph(b.String())
}

type ListItem struct {
	Text string
	Sub  []string
}

// Items is a convenience for a flat list.
func Items(texts ...string) []ListItem {
	items := make([]ListItem, 0, len(texts))
	for _, t := range texts {
		items = append(items, ListItem{Text: t})
	}
	return items
}

// CodeBlock renders inline code for one-liners and an indented block for
// multi-line content.
func CodeBlock(content string) string {
	content = strings.TrimSpace(content)
	if strings.Contains(content, "\n") {
		lines := strings.Split(content, "\n")
		for i, line := range lines {
			lines[i] = "    " + line
		}
		return Paragraph(strings.Join(lines, "\n"))
	}
	return fmt.Sprintf("`%s`", content)
}

// BlockQuote prefixes each paragraph with ">".
func BlockQuote(content string) string {
	content = strings.TrimSpace(content)
	paragraphs := strings.Split(content, "\n\n")
	for i, p := range paragraphs {
		paragraphs[i] = ">" + p
	}
	return Paragraph(strings.Join(paragraphs, "\n\n"))
}

func Header(value string, level int) string {
	if level < 1 {
		level = 1
	}
	return Paragraph(strings.Repeat("#", level) + value)
}

func HorizontalRule() string {
	return Paragraph("---")
}

func Link(title, url string) string {
	return fmt.Sprintf("[%s](%s)", title, url)
}

// Table renders a pipe table with a header row.
func Table(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(tableRow(header))
	dividers := make([]string, len(header))
	for i := range dividers {
		dividers[i] = "---"
	}
	b.WriteString(strings.Join(dividers, "|"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(tableRow(row))
	}
	return Paragraph(b.String())
}

func tableRow(items []string) string {
	cells := make([]string, len(items))
	for i, item := range items {
		if item == "" {
			item = " "
		}
		cells[i] = item
	}
	return strings.Join(cells, " | ") + "\n"
}
