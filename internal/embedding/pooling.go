package embedding

// meanPool averages token vectors (row-major [seq, dims]) over positions where mask is 1.
func meanPool(tokens []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		offset := t * dims
		if offset+dims > len(tokens) {
			break
		}
		for d := 0; d < dims; d++ {
			out[d] += tokens[offset+d]
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}
