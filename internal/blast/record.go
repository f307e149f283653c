// Package blast reads pairwise alignment records in BLAST tabular format (-outfmt 6).
package blast

// Record is one alignment between two genes.
// Identity is a fraction in [0, 1].
type Record struct {
	QueryID     string
	SubjectID   string
	Identity    float64
	AlignLength int
	BitScore    float64
}

// Source yields alignment records one at a time.
type Source interface {
	// Next returns the next record.
	// Returns nil, nil when there are no more records.
	Next() (*Record, error)
}

// SliceSource serves records from memory.
type SliceSource struct {
	records []Record
	pos     int
}

// NewSliceSource wraps records as a Source.
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements Source.
func (s *SliceSource) Next() (*Record, error) {
	if s.pos >= len(s.records) {
		return nil, nil
	}
	r := s.records[s.pos]
	s.pos++
	return &r, nil
}

// Collect drains a source into a slice.
func Collect(src Source) ([]Record, error) {
	var out []Record
	for {
		r, err := src.Next()
		if err != nil {
			return nil, err
		}
		if r == nil {
			return out, nil
		}
		out = append(out, *r)
	}
}
