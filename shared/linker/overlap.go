package linker

import (
	"github.com/rdleal/intervalst/interval"

	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

func compareAddress(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CheckOverlap fails when two sections with different names share an
// address. Empty sections occupy nothing.
func CheckOverlap(sections []*dulf.Section) error {
	st := interval.NewSearchTree[*dulf.Section](compareAddress)
	for _, sec := range sections {
		if sec.Len() == 0 {
			continue
		}
		// sections already in the tree that might share an address with
		// sec; the tree's bounds are inclusive so confirm each one
		if hits, ok := st.AllIntersections(sec.Location, sec.End()); ok {
			for _, other := range hits {
				if other.Name != sec.Name && overlaps(sec, other) {
					return &dubcc.Error{Kind: dubcc.ErrSectionsOverlap, Name: other.Name, Other: sec.Name}
				}
			}
		}
		if err := st.Insert(sec.Location, sec.End(), sec); err != nil {
			return &dubcc.Error{Kind: dubcc.ErrInternal, Name: sec.Name, Err: err}
		}
	}
	return nil
}

func overlaps(a, b *dulf.Section) bool {
	return a.Location < b.End() && b.Location < a.End()
}
