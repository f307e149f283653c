// Package collinearity supplies per-gene score multipliers derived from synteny blocks.
package collinearity

// Weights maps a gene id to its collinearity multiplier.
// Genes without an entry have weight 1.
type Weights map[string]float64

// Weight returns the multiplier for id.
func (w Weights) Weight(id string) float64 {
	if v, ok := w[id]; ok {
		return v
	}
	return 1
}

// Restrict returns the entries whose ids are in keep.
func (w Weights) Restrict(keep map[string]bool) Weights {
	out := make(Weights)
	for id, v := range w {
		if keep[id] {
			out[id] = v
		}
	}
	return out
}

// raise records score for id if it exceeds the current value.
func (w Weights) raise(id string, score float64) {
	if cur, ok := w[id]; !ok || cur < score {
		w[id] = score
	}
}
