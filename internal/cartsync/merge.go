package cartsync

import "somnicart/internal/domain"

// Merge reconciles a remote and a local line set. A variant present on both
// sides keeps the larger quantity; a variant on one side is carried through.
// Remote order comes first, local-only lines are appended. Merging the same
// inputs again yields the same result.
func Merge(remote, local []domain.CartLine) []domain.CartLine {
	merged := domain.NormalizeLines(domain.CloneLines(remote))
	index := make(map[string]int, len(merged))
	for i, l := range merged {
		index[l.VariantID] = i
	}
	for _, l := range domain.NormalizeLines(domain.CloneLines(local)) {
		if i, ok := index[l.VariantID]; ok {
			if l.Quantity > merged[i].Quantity {
				merged[i].Quantity = l.Quantity
			}
			continue
		}
		index[l.VariantID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// mergeHandle prefers the remote checkout handle when one exists.
func mergeHandle(remote, local *string) *string {
	if remote != nil && *remote != "" {
		return remote
	}
	return local
}
