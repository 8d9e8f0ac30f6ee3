package tsplib

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

// maxLineBytes bounds a single line; explicit weight rows can be very long.
const maxLineBytes = 64 << 20

var keywordRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Field is one header line: KEYWORD : value, or KEYWORD value.
type Field struct {
	Keyword string
	Value   string
	Line    int
}

// DataLine is one raw line inside a section.
type DataLine struct {
	Text string
	Line int
}

// Section is a *_SECTION keyword and the data lines that follow it.
type Section struct {
	Name  string
	Line  int
	Lines []DataLine
}

// Document is the tokenized form of a problem file, in file order.
type Document struct {
	Fields   []Field
	Sections []Section
	// SawEOF is false when the text ended without an EOF line.
	SawEOF bool
}

// Tokenize splits text into header fields and section blocks. It stops at
// the first line reading EOF; a missing EOF is not an error.
func Tokenize(text string) (*Document, error) {
	doc := &Document{}
	var current *Section

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(scanner.Text())

		// Skip empty lines
		if trimmed == "" {
			continue
		}

		if trimmed == "EOF" {
			doc.SawEOF = true
			break
		}

		keyword, value, isKeyword := splitKeyword(trimmed)
		if !isKeyword {
			if current == nil {
				return nil, headerError(ErrMalformedHeader, "", lineNo, trimmed,
					fmt.Errorf("data line outside of any section"))
			}
			current.Lines = append(current.Lines, DataLine{Text: trimmed, Line: lineNo})
			continue
		}

		// A keyword line always closes the open section.
		current = nil

		if isSectionKeyword(keyword) {
			doc.Sections = append(doc.Sections, Section{Name: keyword, Line: lineNo})
			current = &doc.Sections[len(doc.Sections)-1]
			if value != "" {
				current.Lines = append(current.Lines, DataLine{Text: value, Line: lineNo})
			}
			continue
		}

		doc.Fields = append(doc.Fields, Field{Keyword: keyword, Value: value, Line: lineNo})
	}

	if err := scanner.Err(); err != nil {
		return nil, headerError(ErrMalformedHeader, "", lineNo+1, "", fmt.Errorf("reading input: %w", err))
	}

	return doc, nil
}

// splitKeyword separates a keyword from its value. It reports false when the
// line does not start with a keyword (i.e. it is section data).
func splitKeyword(line string) (keyword, value string, ok bool) {
	head, rest := line, ""
	if idx := strings.IndexByte(line, ':'); idx != -1 {
		head, rest = line[:idx], line[idx+1:]
	} else if idx := strings.IndexAny(line, " \t"); idx != -1 {
		head, rest = line[:idx], line[idx+1:]
	}

	head = strings.TrimSpace(head)
	if strings.ContainsAny(head, " \t") {
		// "KEYWORD value : more" puts the colon late; split on whitespace instead.
		idx := strings.IndexAny(head, " \t")
		rest = strings.TrimSpace(line[idx+1:])
		head = head[:idx]
	}
	if !keywordRe.MatchString(head) {
		return "", "", false
	}
	return strings.ToUpper(head), strings.TrimSpace(rest), true
}

func isSectionKeyword(keyword string) bool {
	return strings.HasSuffix(keyword, "_SECTION")
}
