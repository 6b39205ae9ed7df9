// Package console derives the admin console's read-side views from the user set
// and keeps a per-session cache fresh from the change feed.
package console

import (
	"bytes"
	"sort"
	"strings"
	"sync"

	"warden/internal/models"
	"warden/internal/service"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultPageSize is the number of users shown per page.
const DefaultPageSize = 15

// Filter values shared by role and status selectors.
const (
	FilterAll    = "all"
	StatusActive = "active"
	StatusBanned = "banned"
)

// Query holds every input that shapes a page of users.
type Query struct {
	Search   string `json:"search"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// PageView is one page of the filtered, ordered user list.
type PageView struct {
	Items      []models.User `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	// From and To are 1-based and inclusive; both are 0 when nothing matched.
	From  int `json:"from"`
	To    int `json:"to"`
	Total int `json:"total"`
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.IgnoreCase)
)

// Derive filters, orders and paginates users. It never mutates its input.
func Derive(users []models.User, q Query) PageView {
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	matched := Filter(users, q)
	Order(matched)

	total := len(matched)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	page := clamp(q.Page, 1, totalPages)

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}

	view := PageView{
		Items:      matched[start:end],
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      total,
	}
	if total > 0 {
		view.From = start + 1
		view.To = end
	}
	return view
}

// Filter returns the users matching the query's search, role and status.
func Filter(users []models.User, q Query) []models.User {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	role := normalize(q.Role)
	status := normalize(q.Status)

	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if search != "" && !matchesSearch(u, search) {
			continue
		}
		if role != FilterAll && string(u.UserType) != role {
			continue
		}
		switch status {
		case StatusBanned:
			if !u.IsBanned {
				continue
			}
		case StatusActive:
			if u.IsBanned {
				continue
			}
		}
		out = append(out, u)
	}
	return out
}

func matchesSearch(u models.User, needle string) bool {
	fields := []string{u.FullName(), u.Email}
	if u.MobileNumber != nil {
		fields = append(fields, *u.MobileNumber)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Order sorts in place by role rank, then first and last name under English
// collation, then id.
func Order(users []models.User) {
	keys := make([][]byte, len(users))
	collatorMu.Lock()
	var buf collate.Buffer
	for i := range users {
		keys[i] = append([]byte(nil), collator.KeyFromString(&buf, users[i].FirstName+" "+users[i].LastName)...)
		buf.Reset()
	}
	collatorMu.Unlock()

	idx := make([]int, len(users))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ua, ub := users[idx[a]], users[idx[b]]
		if ra, rb := ua.UserType.Rank(), ub.UserType.Rank(); ra != rb {
			return ra < rb
		}
		if c := bytes.Compare(keys[idx[a]], keys[idx[b]]); c != 0 {
			return c < 0
		}
		return ua.ID < ub.ID
	})

	sorted := make([]models.User, len(users))
	for i, j := range idx {
		sorted[i] = users[j]
	}
	copy(users, sorted)
}

// DefaultReviewFilter is applied when no review status is requested.
const DefaultReviewFilter = string(models.ApprovalStatusPending)

// FilterReviews keeps reviews whose status matches. "all" keeps everything.
func FilterReviews(reviews []service.Review, status string) []service.Review {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		status = DefaultReviewFilter
	}
	out := make([]service.Review, 0, len(reviews))
	for _, r := range reviews {
		if status == FilterAll || string(r.Record().Status) == status {
			out = append(out, r)
		}
	}
	return out
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
