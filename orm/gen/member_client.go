package gen

import (
	"context"
	"errors"
	"fmt"

	"github.com/deicod/querystudy/orm/runtime"
	"github.com/deicod/querystudy/orm/runtime/validation"
)

const (
	memberTable       = "members"
	memberInsertQuery = `INSERT INTO members (username, age, team_id) VALUES ($1, $2, $3) RETURNING id`
	memberUpdateQuery = `UPDATE members SET username = $1, age = $2, team_id = $3 WHERE id = $4`
	memberDeleteQuery = `DELETE FROM members WHERE id = $1`
)

// MemberClient reads and writes members.
type MemberClient struct {
	client *Client
}

// syncTeamID copies the id of a loaded team edge onto TeamID, so members
// built before their team was saved still reference it.
func syncTeamID(m *Member) {
	if team := m.Edges.Team; team != nil && team.ID != 0 {
		id := team.ID
		m.TeamID = &id
	}
}

// Create inserts m, assigns its id and tracks it.
func (c *MemberClient) Create(ctx context.Context, m *Member) (*Member, error) {
	if m == nil {
		return nil, errors.New("gen: nil member")
	}
	syncTeamID(m)
	if err := ValidationRegistry.Validate(ctx, "Member", validation.OpCreate, memberValidationRecord(m), m); err != nil {
		return nil, err
	}
	row := c.client.QueryRow(ctx, runtime.OperationInsert, memberTable, memberInsertQuery, m.Username, m.Age, m.TeamID)
	if err := row.Scan(&m.ID); err != nil {
		return nil, fmt.Errorf("gen: insert member: %w", err)
	}
	if err := c.client.track(ctx, memberKey(m.ID), m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateBulk inserts members with a single statement.
func (c *MemberClient) CreateBulk(ctx context.Context, members ...*Member) ([]*Member, error) {
	if len(members) == 0 {
		return nil, nil
	}
	rows := make([][]any, len(members))
	for i, m := range members {
		if m == nil {
			return nil, fmt.Errorf("gen: nil member at index %d", i)
		}
		syncTeamID(m)
		if err := ValidationRegistry.Validate(ctx, "Member", validation.OpCreate, memberValidationRecord(m), m); err != nil {
			return nil, fmt.Errorf("gen: member %d: %w", i, err)
		}
		rows[i] = []any{m.Username, m.Age, m.TeamID}
	}
	sql, args, err := runtime.BuildBulkInsertSQL(runtime.BulkInsertSpec{
		Table:     memberTable,
		Columns:   []string{"username", "age", "team_id"},
		Returning: []string{"id"},
		Rows:      rows,
	})
	if err != nil {
		return nil, err
	}
	result, err := c.client.Query(ctx, runtime.OperationInsert, memberTable, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("gen: bulk insert members: %w", err)
	}
	defer result.Close()
	i := 0
	for result.Next() {
		if i >= len(members) {
			return nil, errors.New("gen: bulk insert returned more ids than rows")
		}
		if err := result.Scan(&members[i].ID); err != nil {
			return nil, fmt.Errorf("gen: bulk insert members: %w", err)
		}
		i++
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("gen: bulk insert members: %w", err)
	}
	if i != len(members) {
		return nil, fmt.Errorf("gen: bulk insert returned %d ids for %d members", i, len(members))
	}
	for _, m := range members {
		if err := c.client.track(ctx, memberKey(m.ID), m); err != nil {
			return nil, err
		}
	}
	return members, nil
}

// ByID returns the member with id, from the identity map when it is tracked.
func (c *MemberClient) ByID(ctx context.Context, id int64) (*Member, error) {
	if tracked, ok := c.client.lookup(ctx, memberKey(id)); ok {
		if m, ok := tracked.(*Member); ok {
			return m, nil
		}
	}
	return c.Query().Where(Members.ID.Eq(id)).FetchOne(ctx)
}

// Query starts a select over members through the identity map.
func (c *MemberClient) Query() *runtime.Query[*Member] {
	return runtime.SelectFrom[*Member](c.client, Members)
}

// Update writes every column of m.
func (c *MemberClient) Update(ctx context.Context, m *Member) (*Member, error) {
	if m == nil {
		return nil, errors.New("gen: nil member")
	}
	syncTeamID(m)
	if err := ValidationRegistry.Validate(ctx, "Member", validation.OpUpdate, memberValidationRecord(m), m); err != nil {
		return nil, err
	}
	tag, err := c.client.Exec(ctx, runtime.OperationUpdate, memberTable, memberUpdateQuery, m.Username, m.Age, m.TeamID, m.ID)
	if err != nil {
		return nil, fmt.Errorf("gen: update member %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("gen: update member %d: %w", m.ID, runtime.ErrNotFound)
	}
	if err := c.client.track(ctx, memberKey(m.ID), m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes the member with id.
func (c *MemberClient) Delete(ctx context.Context, id int64) error {
	tag, err := c.client.Exec(ctx, runtime.OperationDelete, memberTable, memberDeleteQuery, id)
	if err != nil {
		return fmt.Errorf("gen: delete member %d: %w", id, err)
	}
	if err := c.client.forget(ctx, memberKey(id)); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gen: delete member %d: %w", id, runtime.ErrNotFound)
	}
	return nil
}

// DeleteIDs removes several members with one statement and returns how many
// rows went away.
func (c *MemberClient) DeleteIDs(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = id
	}
	sql, args, err := runtime.BuildBulkDeleteSQL(runtime.BulkDeleteSpec{
		Table:         memberTable,
		PrimaryColumn: "id",
		IDs:           keys,
	})
	if err != nil {
		return 0, err
	}
	tag, err := c.client.Exec(ctx, runtime.OperationDelete, memberTable, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("gen: delete members: %w", err)
	}
	for _, id := range ids {
		if err := c.client.forget(ctx, memberKey(id)); err != nil {
			return 0, err
		}
	}
	return tag.RowsAffected(), nil
}

// LoadTeam fills Edges.Team of every member that has a team, with one query.
func (c *MemberClient) LoadTeam(ctx context.Context, members ...*Member) error {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, m := range members {
		if m == nil || m.TeamID == nil {
			continue
		}
		if _, ok := seen[*m.TeamID]; !ok {
			seen[*m.TeamID] = struct{}{}
			ids = append(ids, *m.TeamID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	teams, err := c.client.Teams().Query().Where(Teams.ID.In(ids...)).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("gen: load member teams: %w", err)
	}
	byID := make(map[int64]*Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}
	for _, m := range members {
		if m == nil || m.TeamID == nil {
			continue
		}
		if team, ok := byID[*m.TeamID]; ok {
			m.Edges.Team = team
			team.addMember(m)
		}
	}
	return nil
}

// Search returns members joined with their team, filtered by cond.
func (c *MemberClient) Search(ctx context.Context, cond MemberSearchCondition) ([]MemberTeamDto, error) {
	return c.searchQuery(cond).Fetch(ctx)
}

// SearchPage is Search with paging and the total number of matches.
func (c *MemberClient) SearchPage(ctx context.Context, cond MemberSearchCondition, offset, limit int) (runtime.Results[MemberTeamDto], error) {
	return c.searchQuery(cond).Offset(offset).Limit(limit).FetchResults(ctx)
}

func (c *MemberClient) searchQuery(cond MemberSearchCondition) *runtime.Query[MemberTeamDto] {
	proj := runtime.Fields[MemberTeamDto](
		Members.ID.As("member_id"),
		Members.Username,
		Members.Age,
		Members.TeamID,
		Teams.Name.Nullable().As("team_name"),
	)
	return runtime.Select[MemberTeamDto](c.client, proj).
		From(Members).
		LeftJoin(Teams, Members.TeamID.EqExpr(Teams.ID)).
		Where(
			usernameEq(cond.Username),
			teamNameEq(cond.TeamName),
			ageGoe(cond.AgeGoe),
			ageLoe(cond.AgeLoe),
		).
		OrderBy(Members.ID.Asc())
}

func usernameEq(username string) runtime.Predicate {
	if username == "" {
		return nil
	}
	return Members.Username.Eq(username)
}

func teamNameEq(name string) runtime.Predicate {
	if name == "" {
		return nil
	}
	return Teams.Name.Eq(name)
}

func ageGoe(age *int) runtime.Predicate {
	if age == nil {
		return nil
	}
	return Members.Age.Goe(*age)
}

func ageLoe(age *int) runtime.Predicate {
	if age == nil {
		return nil
	}
	return Members.Age.Loe(*age)
}
