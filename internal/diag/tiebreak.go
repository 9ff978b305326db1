package diag

// KeepMostSpecific applies the per-node tie-break: among diagnostics sharing
// a non-zero Node only the one with the narrowest primary span survives, and
// among equally narrow ones the lowest rank (earliest check) wins. Diagnostics
// without a node pass through. Input order is preserved for survivors.
func KeepMostSpecific(ds []Diagnostic, rank func(Code) int) []Diagnostic {
	best := make(map[uint64]int, len(ds))
	for i, d := range ds {
		if d.Node == 0 {
			continue
		}
		j, ok := best[d.Node]
		if !ok || moreSpecific(d, ds[j], rank) {
			best[d.Node] = i
		}
	}
	out := make([]Diagnostic, 0, len(ds))
	for i, d := range ds {
		if d.Node != 0 && best[d.Node] != i {
			continue
		}
		out = append(out, d)
	}
	return out
}

func moreSpecific(a, b Diagnostic, rank func(Code) int) bool {
	if a.Primary.Len() != b.Primary.Len() {
		return a.Primary.Len() < b.Primary.Len()
	}
	if rank == nil {
		return false
	}
	return rank(a.Code) < rank(b.Code)
}
