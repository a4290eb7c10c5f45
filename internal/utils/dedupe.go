package utils

// KeepBest collapses items that share a key, keeping one winner per key.
// better reports whether the challenger should replace the incumbent.
// First-seen order of surviving keys is preserved so callers get
// reproducible output before any final sorting.
func KeepBest[T any](items []T, key func(T) string, better func(incumbent, challenger T) bool) []T {
	if len(items) == 0 {
		return nil
	}

	out := make([]T, 0, len(items))
	pos := make(map[string]int, len(items))

	for _, item := range items {
		k := key(item)
		if i, seen := pos[k]; seen {
			if better(out[i], item) {
				out[i] = item
			}
			continue
		}
		pos[k] = len(out)
		out = append(out, item)
	}
	return out
}
