package collinearity

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const alignmentHeader = "## Alignment"

// ParseCollinearity reads an MCScanX .collinearity report.
// Each "## Alignment N: score=S ..." header sets the score of the block that follows;
// every gene on a pair line is weighted with the best block score it appears in.
func ParseCollinearity(r io.Reader) (Weights, error) {
	weights := make(Weights)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		lineNumber int
		score      float64
		inBlock    bool
	)
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if !strings.HasPrefix(line, alignmentHeader) {
				continue
			}
			s, err := parseBlockScore(line)
			if err != nil {
				return nil, &ParseError{Line: lineNumber, Message: err.Error()}
			}
			score = s
			inBlock = true
			continue
		}

		if !inBlock {
			return nil, &ParseError{Line: lineNumber, Message: "gene pair before first alignment header"}
		}
		id1, id2, ok := parsePairLine(line)
		if !ok {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("malformed gene pair line: %q", line)}
		}
		weights.raise(id1, score)
		weights.raise(id2, score)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan collinearity: %w", err)
	}

	return weights, nil
}

// ReadFile parses a .collinearity report on disk.
func ReadFile(path string) (Weights, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open collinearity file: %w", err)
	}
	defer f.Close()

	w, err := ParseCollinearity(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// parseBlockScore extracts S from "## Alignment 0: score=S e_value=... N=...".
func parseBlockScore(line string) (float64, error) {
	for _, field := range strings.Fields(line) {
		key, val, ok := strings.Cut(field, "=")
		if !ok || key != "score" {
			continue
		}
		s, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid block score: %s", val)
		}
		return s, nil
	}
	return 0, fmt.Errorf("alignment header without score: %q", line)
}

// parsePairLine returns the two gene ids of a "  0-  1:\tgeneA\tgeneB\t  0" line.
// The ids follow the first field ending in ':', which tolerates collapsed padding.
func parsePairLine(line string) (string, string, bool) {
	fields := strings.Fields(line)
	for i, f := range fields {
		if strings.HasSuffix(f, ":") {
			if i+2 >= len(fields) {
				return "", "", false
			}
			return fields[i+1], fields[i+2], true
		}
	}
	return "", "", false
}

// ParseError represents a malformed line in a collinearity report.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("collinearity parse error at line %d: %s", e.Line, e.Message)
}
