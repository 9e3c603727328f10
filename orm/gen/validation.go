package gen

import (
	"github.com/deicod/querystudy/orm/runtime/validation"
)

// ValidationRegistry holds the rules checked before inserts and updates.
var ValidationRegistry = defaultValidationRegistry()

func defaultValidationRegistry() *validation.Registry {
	reg := validation.NewRegistry()
	reg.Entity("Team").OnSave(
		validation.String("name").Required().MaxLen(255),
	)
	reg.Entity("Member").OnSave(
		validation.String("username").MaxLen(255),
		validation.Int("age").Min(0),
	)
	return reg
}

func memberValidationRecord(m *Member) validation.Record {
	return validation.Record{
		"username": m.Username,
		"age":      m.Age,
		"team_id":  m.TeamID,
	}
}

func teamValidationRecord(t *Team) validation.Record {
	return validation.Record{
		"name": t.Name,
	}
}
