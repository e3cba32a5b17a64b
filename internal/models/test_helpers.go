package models

// NewTestStore creates an in-memory store seeded with the given places and banners.
func NewTestStore(places []Place, banners []Banner) *InMemoryStore {
	s := NewInMemoryStore()
	s.SetPlaces(places)
	s.SetBanners(banners)
	return s
}

// IntPtr returns a pointer to v. Handy for optional fields in fixtures.
func IntPtr(v int) *int {
	return &v
}
