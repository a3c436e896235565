package linker

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	dubcc "dubcc/shared"
	"dubcc/shared/dulf"
)

// FormSections assigns every section its load address and returns all
// sections sorted by address. A section that would run past the top of
// the 32-bit address space is an error; the last byte of memory is never
// used since End must fit in 32 bits.
//
// Sections named by a placement go to that address, later sections of
// the same name directly after the earlier ones in input order. The
// remaining sections are grouped by name in order of first appearance
// and laid out from the highest end of the placed ones.
func (l *Linker) FormSections() ([]*dulf.Section, error) {
	next := make(map[string]uint32)
	var (
		all   []*dulf.Section
		top   uint32
		names []string
	)
	groups := make(map[string][]*dulf.Section)

	for _, obj := range l.objects {
		for _, sec := range obj.Sections {
			all = append(all, sec)
			sec.Placed = false

			var err error
			if at, ok := next[sec.Name]; ok {
				err = l.place(sec, at)
			} else if at, ok := l.places[sec.Name]; ok {
				delete(l.places, sec.Name)
				err = l.place(sec, at)
			} else {
				if _, seen := groups[sec.Name]; !seen {
					names = append(names, sec.Name)
				}
				groups[sec.Name] = append(groups[sec.Name], sec)
				continue
			}
			if err != nil {
				return nil, err
			}
			next[sec.Name] = sec.End()
			top = max(top, sec.End())
		}
	}
	for name := range l.places {
		l.Logf("placement for %s matches no section", name)
	}

	for _, name := range names {
		for _, sec := range groups[name] {
			if err := l.place(sec, top); err != nil {
				return nil, err
			}
			top = sec.End()
		}
	}

	slices.SortStableFunc(all, func(a, b *dulf.Section) int {
		return cmp.Compare(a.Location, b.Location)
	})
	return all, nil
}

func (l *Linker) place(sec *dulf.Section, at uint32) error {
	if uint64(at)+uint64(sec.Len()) > math.MaxUint32 {
		return &dubcc.Error{Kind: dubcc.ErrAddressOverflow, Name: sec.Name, File: sec.File,
			Err: fmt.Errorf("%d bytes at %#x", sec.Len(), at)}
	}
	sec.Location = at
	sec.Placed = true
	l.Logf("section %s of %s at %#x, %d bytes", sec.Name, sec.File, at, sec.Len())
	return nil
}
