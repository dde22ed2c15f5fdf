package value

import "github.com/tuyuji/ako/core/invariant"

// Merge folds overlay into base, mutating base.
//
// Tables merge key by key: absent keys are inserted, keys holding two tables
// or two arrays merge recursively, and anything else is replaced by the
// overlay's value. Arrays concatenate. Both roots must be the same container
// kind. Everything grafted into base is cloned, so overlay stays untouched
// and the trees never share nodes.
func Merge(base, overlay *Value) error {
	invariant.NotNil(base, "base")
	invariant.NotNil(overlay, "overlay")

	if base.kind != overlay.kind {
		return mismatch(overlay.kind, base.kind)
	}

	switch base.kind {
	case KindTable:
		mergeTables(base.table, overlay.table)
		return nil
	case KindArray:
		for _, e := range overlay.arr {
			base.arr = append(base.arr, e.Clone())
		}
		return nil
	default:
		return mismatch(base.kind, KindTable, KindArray)
	}
}

func mergeTables(dst, src *Table) {
	for key, incoming := range src.All() {
		existing, ok := dst.Get(key)
		if ok && existing.kind == incoming.kind && existing.IsContainer() {
			// Same container kind on both sides cannot mismatch
			invariant.ExpectNoError(Merge(existing, incoming), "nested merge")
			continue
		}
		dst.Set(key, incoming.Clone())
	}
}
