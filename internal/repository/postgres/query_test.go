package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/health-enrollment/internal/model"
)

func TestClientListQuery_SearchGenderOrdering(t *testing.T) {
	list, count, args, countArgs := clientListQuery(model.ClientFilter{
		ListParams: model.ListParams{Search: "doe", Ordering: "-last_name", Page: 2, PageSize: 10},
		Gender:     model.GenderFemale,
	})

	assert.Contains(t, list, "first_name ILIKE $1 OR last_name ILIKE $1 OR national_id ILIKE $1 OR phone_number ILIKE $1 OR email ILIKE $1")
	assert.Contains(t, list, "AND gender = $2")
	assert.Contains(t, list, "ORDER BY last_name DESC, id ASC LIMIT $3 OFFSET $4")
	assert.Equal(t, []interface{}{"%doe%", "F", 10, 10}, args)

	assert.Equal(t, "SELECT COUNT(*) FROM clients WHERE (first_name ILIKE $1 OR last_name ILIKE $1 OR national_id ILIKE $1 OR phone_number ILIKE $1 OR email ILIKE $1) AND gender = $2", count)
	assert.Equal(t, []interface{}{"%doe%", "F"}, countArgs)
}

func TestClientListQuery_UnknownOrderingFallsBack(t *testing.T) {
	list, count, args, countArgs := clientListQuery(model.ClientFilter{
		ListParams: model.ListParams{Ordering: "national_id; DROP TABLE clients", Page: 1, PageSize: 20},
	})

	assert.Contains(t, list, "ORDER BY created_at DESC, id ASC LIMIT $1 OFFSET $2")
	assert.NotContains(t, list, "DROP")
	assert.Equal(t, "SELECT COUNT(*) FROM clients", count)
	assert.Equal(t, []interface{}{20, 0}, args)
	assert.Empty(t, countArgs)
}

func TestProgramListQuery(t *testing.T) {
	list, _, args, _ := programListQuery(model.ProgramFilter{
		ListParams: model.ListParams{Search: "50%_off", Ordering: "name", Page: 1, PageSize: 5},
	})

	assert.Contains(t, list, "FROM health_programs WHERE (name ILIKE $1 OR description ILIKE $1) ORDER BY name ASC, id ASC")
	assert.Equal(t, `%50\%\_off%`, args[0])
}
