package memory

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/health-enrollment/internal/model"
)

// containsFold reports whether any of the values contains term, ignoring case.
func containsFold(term string, values ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// paginate slices items for the page described by p.
func paginate[T any](items []T, p model.ListParams) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func compareIDs(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}

func sortClients(clients []*model.Client, o model.Ordering) {
	sort.SliceStable(clients, func(i, j int) bool {
		a, b := clients[i], clients[j]
		var c int
		switch o.Field {
		case "first_name":
			c = strings.Compare(a.FirstName, b.FirstName)
		case "last_name":
			c = strings.Compare(a.LastName, b.LastName)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if o.Desc {
			c = -c
		}
		if c == 0 {
			return compareIDs(a.ID, b.ID) < 0
		}
		return c < 0
	})
}

func sortPrograms(programs []*model.HealthProgram, o model.Ordering) {
	sort.SliceStable(programs, func(i, j int) bool {
		a, b := programs[i], programs[j]
		var c int
		switch o.Field {
		case "name":
			c = strings.Compare(a.Name, b.Name)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if o.Desc {
			c = -c
		}
		if c == 0 {
			return compareIDs(a.ID, b.ID) < 0
		}
		return c < 0
	})
}
