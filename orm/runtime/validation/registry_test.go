package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestRegistryAggregatesErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Entity("Member").OnSave(
		String("username").MaxLen(5),
		Int("age").Min(0),
	)

	err := reg.Validate(context.Background(), "Member", OpCreate, Record{
		"username": "member1",
		"age":      -1,
	}, nil)
	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, []string{"username", "age"}, verrs.Fields())
	require.Equal(t, "username: must be at most 5 characters; age: must be at least 0", err.Error())
}

func TestRegistryWithoutRules(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Validate(context.Background(), "Member", OpCreate, nil, nil))

	reg.Entity("Team").OnCreate(String("name").Required())
	require.NoError(t, reg.Validate(context.Background(), "Team", OpUpdate, Record{}, nil))

	var nilRegistry *Registry
	require.NoError(t, nilRegistry.Validate(context.Background(), "Team", OpCreate, nil, nil))
}

func TestStringRule(t *testing.T) {
	ctx := context.Background()
	rule := String("name").Required().MinLen(2).MaxLen(4)
	cases := []struct {
		value any
		ok    bool
	}{
		{"teamA", false},
		{"a", false},
		{"abc", true},
		{"", false},
		{(*string)(nil), false},
		{42, false},
	}
	for _, tc := range cases {
		err := rule.Validate(ctx, Subject{Record: Record{"name": tc.value}})
		require.Equal(t, tc.ok, err == nil, "value %#v: %v", tc.value, err)
	}

	optional := String("username").MaxLen(3)
	require.NoError(t, optional.Validate(ctx, Subject{Record: Record{"username": (*string)(nil)}}))
	require.NoError(t, optional.Validate(ctx, Subject{Record: Record{}}))
}

func TestIntRule(t *testing.T) {
	ctx := context.Background()
	rule := Int("age").Min(0).Max(150)
	require.NoError(t, rule.Validate(ctx, Subject{Record: Record{"age": 40}}))
	require.NoError(t, rule.Validate(ctx, Subject{Record: Record{}}))
	require.Error(t, rule.Validate(ctx, Subject{Record: Record{"age": int64(151)}}))
	require.Error(t, rule.Validate(ctx, Subject{Record: Record{"age": "old"}}))
}

type memberInput struct {
	Username string `validate:"required,max=8"`
	Age      int    `validate:"gte=0"`
}

func TestStructRuleTranslatesValidatorErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Entity("Member").OnCreate(Struct(validator.New()))

	err := reg.Validate(context.Background(), "Member", OpCreate, nil, memberInput{Age: -3})
	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, Errors{
		{Field: "Username", Message: "is required"},
		{Field: "Age", Message: "must be at least 0"},
	}, verrs)

	require.NoError(t, reg.Validate(context.Background(), "Member", OpCreate, nil, &memberInput{Username: "member1", Age: 10}))
	require.NoError(t, reg.Validate(context.Background(), "Member", OpCreate, nil, 7))
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(nil, memberInput{Username: "member1"}))

	err := Check(validator.New(), &memberInput{Username: "member-too-long", Age: 1})
	require.EqualError(t, err, "Username: must be at most 8 characters")

	err = Check(nil, 42)
	var verrs Errors
	require.False(t, errors.As(err, &verrs))
	require.Error(t, err)
}
