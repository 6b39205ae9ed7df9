package console

import "warden/internal/models"

// ViewState is the mutable filter state of one console session. Changing any
// filter sends the session back to page 1.
type ViewState struct {
	query Query
}

// NewViewState starts on page 1 with every filter open.
func NewViewState(pageSize int) *ViewState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ViewState{query: Query{Role: FilterAll, Status: FilterAll, Page: 1, PageSize: pageSize}}
}

// Query returns a copy of the current inputs.
func (s *ViewState) Query() Query {
	return s.query
}

func (s *ViewState) SetSearch(search string) {
	if search != s.query.Search {
		s.query.Search = search
		s.query.Page = 1
	}
}

func (s *ViewState) SetRole(role string) {
	role = normalize(role)
	if role != s.query.Role {
		s.query.Role = role
		s.query.Page = 1
	}
}

func (s *ViewState) SetStatus(status string) {
	status = normalize(status)
	if status != s.query.Status {
		s.query.Status = status
		s.query.Page = 1
	}
}

// Update applies a client query. Filter changes win over the requested page.
func (s *ViewState) Update(q Query) {
	before := s.query
	s.SetSearch(q.Search)
	s.SetRole(q.Role)
	s.SetStatus(q.Status)
	if s.query == before && q.Page > 0 {
		s.query.Page = q.Page
	}
}

// GoToPage moves to page, clamped to the pages available for users.
func (s *ViewState) GoToPage(users []models.User, page int) PageView {
	s.query.Page = page
	return s.Apply(users)
}

// Apply derives the current page and stores the clamped page number, so a
// shrinking user set never strands the session past the last page.
func (s *ViewState) Apply(users []models.User) PageView {
	view := Derive(users, s.query)
	s.query.Page = view.Page
	return view
}
