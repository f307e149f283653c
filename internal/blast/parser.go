package blast

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Minimum number of whitespace-separated columns in a record:
// qseqid, sseqid, pident, length, and the bit score as the final column.
const minColumns = 5

// Parser reads alignment records from a BLAST tabular file.
// Percent identity (column 3) is converted to a fraction.
// The bit score is always taken from the last column.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
}

// NewParser opens a BLAST tabular file. Gzipped files are detected by magic bytes.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blast file: %w", err)
	}

	p := &Parser{file: file}

	br := bufio.NewReader(file)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	return p, nil
}

// NewParserFromReader creates a parser over an arbitrary reader.
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// Next reads the next record.
// Returns nil, nil when there are no more records.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read blast line: %w", err)
		}
		if line == "" && err == io.EOF {
			return nil, nil
		}
		p.lineNumber++

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}
		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Fields(line)
	if len(fields) < minColumns {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", minColumns, len(fields)),
		}
	}

	identity, err := percentToFraction(fields[2])
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid percent identity: %s", fields[2]),
		}
	}

	length, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid alignment length: %s", fields[3]),
		}
	}
	if length <= 0 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("alignment length must be positive: %d", length),
		}
	}

	last := fields[len(fields)-1]
	bitScore, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid bit score: %s", last),
		}
	}

	return &Record{
		QueryID:     fields[0],
		SubjectID:   fields[1],
		Identity:    identity,
		AlignLength: length,
		BitScore:    bitScore,
	}, nil
}

// percentToFraction converts a percentage such as "80.10" to 0.801 by moving
// the decimal point in the text before parsing, so the result is the float
// nearest the decimal fraction and compares equal to the same threshold literal.
func percentToFraction(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if strings.ContainsAny(s, "eEpPxXiInN") {
		return v / 100, nil
	}

	sign := ""
	if s[0] == '+' || s[0] == '-' {
		sign, s = s[:1], s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	digits := intPart + frac
	point := len(intPart) - 2

	var shifted string
	if point <= 0 {
		shifted = "0." + strings.Repeat("0", -point) + digits
	} else {
		shifted = digits[:point] + "." + digits[point:]
	}
	return strconv.ParseFloat(sign+shifted, 64)
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents a malformed alignment row.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("blast parse error at line %d: %s", e.Line, e.Message)
}
