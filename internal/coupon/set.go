package coupon

// mapCouponSet implements CouponSet using a map for O(1) lookups.
type mapCouponSet struct {
	index   map[Key]struct{}
	ordered []Definition
	skipped int
}

// NewMapCouponSet creates a new map-based coupon set.
func NewMapCouponSet(capacity int) CouponSet {
	return &mapCouponSet{
		index:   make(map[Key]struct{}, capacity),
		ordered: make([]Definition, 0, capacity),
	}
}

// Contains checks if a definition exists for the code and course.
func (s *mapCouponSet) Contains(code, courseID string) bool {
	_, exists := s.index[Key{Code: code, CourseID: courseID}]
	return exists
}

// Size returns the number of definitions in the set.
func (s *mapCouponSet) Size() int {
	return len(s.ordered)
}

// Definitions returns the definitions in the order they were read.
func (s *mapCouponSet) Definitions() []Definition {
	return s.ordered
}

// Skipped returns the number of malformed or duplicate rows.
func (s *mapCouponSet) Skipped() int {
	return s.skipped
}

// Add adds a definition. A repeated (code, course) pair is counted as skipped.
func (s *mapCouponSet) Add(def Definition) bool {
	key := Key{Code: def.Code, CourseID: def.CourseID}
	if _, exists := s.index[key]; exists {
		s.skipped++
		return false
	}
	s.index[key] = struct{}{}
	s.ordered = append(s.ordered, def)
	return true
}

// Skip counts a row that could not be used.
func (s *mapCouponSet) Skip() {
	s.skipped++
}
