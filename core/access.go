package core

import "sort"

// GradeScope is the set of grades (classes) a user may see.
// The zero value is unrestricted.
type GradeScope struct {
	restricted bool
	ids        map[int]struct{}
}

// UnrestrictedScope allows every grade.
func UnrestrictedScope() GradeScope {
	return GradeScope{}
}

// NewGradeScope allows only the given grades. No ids means no grade at all.
func NewGradeScope(ids ...int) GradeScope {
	s := GradeScope{restricted: true, ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s GradeScope) IsRestricted() bool { return s.restricted }

func (s GradeScope) Allows(gradeID int) bool {
	if !s.restricted {
		return true
	}
	_, ok := s.ids[gradeID]
	return ok
}

// IDs returns the allowed grade ids in ascending order, nil when unrestricted.
func (s GradeScope) IDs() []int {
	if !s.restricted {
		return nil
	}
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
