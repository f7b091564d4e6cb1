package models

import "sync"

// Professor is a faculty record as stored by the professor backend. JSON
// names follow the backend contract and are sent verbatim.
type Professor struct {
	Name            string   `json:"nome" validate:"required"`
	EnrollmentID    string   `json:"matriculaId" validate:"required"`
	UnitID          string   `json:"unidadeId"`
	Qualification   string   `json:"titulacao"`
	Reference       string   `json:"referencia"`
	AcademicProfile string   `json:"lattes"`
	CourseIDs       []string `json:"coursesId"`
	ActivityStatus  string   `json:"statusAtividade"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Notes           string   `json:"notes"`
}

// ProfessorFilter captures filtering options for the backend filter endpoint.
type ProfessorFilter struct {
	Name           string
	CourseIDs      []string
	Qualifications []string
}

// ProfessorCollection is a caller-owned list of professors that can be
// replaced in place. Every holder of the same pointer observes Replace.
type ProfessorCollection struct {
	mu    sync.RWMutex
	items []Professor
}

// NewProfessorCollection builds a collection seeded with items.
func NewProfessorCollection(items ...Professor) *ProfessorCollection {
	c := &ProfessorCollection{}
	c.Replace(items)
	return c
}

// Replace swaps the whole contents of the collection.
func (c *ProfessorCollection) Replace(items []Professor) {
	cp := make([]Professor, len(items))
	copy(cp, items)
	c.mu.Lock()
	c.items = cp
	c.mu.Unlock()
}

// Items returns a snapshot of the current contents.
func (c *ProfessorCollection) Items() []Professor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]Professor, len(c.items))
	copy(cp, c.items)
	return cp
}

// Len reports the number of professors held.
func (c *ProfessorCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
