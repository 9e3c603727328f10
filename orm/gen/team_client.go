package gen

import (
	"context"
	"errors"
	"fmt"

	"github.com/deicod/querystudy/orm/runtime"
	"github.com/deicod/querystudy/orm/runtime/validation"
)

const (
	teamTable       = "teams"
	teamInsertQuery = `INSERT INTO teams (name) VALUES ($1) RETURNING id`
	teamDeleteQuery = `DELETE FROM teams WHERE id = $1`
)

// TeamClient reads and writes teams.
type TeamClient struct {
	client *Client
}

// Create inserts t, assigns its id and tracks it. Members already attached
// to t pick up the new id.
func (c *TeamClient) Create(ctx context.Context, t *Team) (*Team, error) {
	if t == nil {
		return nil, errors.New("gen: nil team")
	}
	if err := ValidationRegistry.Validate(ctx, "Team", validation.OpCreate, teamValidationRecord(t), t); err != nil {
		return nil, err
	}
	if err := c.client.QueryRow(ctx, runtime.OperationInsert, teamTable, teamInsertQuery, t.Name).Scan(&t.ID); err != nil {
		return nil, fmt.Errorf("gen: insert team: %w", err)
	}
	for _, m := range t.Edges.Members {
		syncTeamID(m)
	}
	if err := c.client.track(ctx, teamKey(t.ID), t); err != nil {
		return nil, err
	}
	return t, nil
}

// ByID returns the team with id, from the identity map when it is tracked.
func (c *TeamClient) ByID(ctx context.Context, id int64) (*Team, error) {
	if tracked, ok := c.client.lookup(ctx, teamKey(id)); ok {
		if t, ok := tracked.(*Team); ok {
			return t, nil
		}
	}
	return c.Query().Where(Teams.ID.Eq(id)).FetchOne(ctx)
}

// Query starts a select over teams through the identity map.
func (c *TeamClient) Query() *runtime.Query[*Team] {
	return runtime.SelectFrom[*Team](c.client, Teams)
}

// LoadMembers replaces Edges.Members of every team with its members, ordered
// by id, with one query.
func (c *TeamClient) LoadMembers(ctx context.Context, teams ...*Team) error {
	ids := make([]int64, 0, len(teams))
	byID := make(map[int64]*Team, len(teams))
	for _, t := range teams {
		if t == nil || t.ID == 0 {
			continue
		}
		if _, ok := byID[t.ID]; !ok {
			ids = append(ids, t.ID)
		}
		byID[t.ID] = t
		t.Edges.Members = nil
	}
	if len(ids) == 0 {
		return nil
	}
	members, err := c.client.Members().Query().
		Where(Members.TeamID.In(ids...)).
		OrderBy(Members.ID.Asc()).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("gen: load team members: %w", err)
	}
	for _, m := range members {
		if m.TeamID == nil {
			continue
		}
		if team, ok := byID[*m.TeamID]; ok {
			m.Edges.Team = team
			team.addMember(m)
		}
	}
	return nil
}

// Delete removes the team with id. Its members keep existing without a team.
func (c *TeamClient) Delete(ctx context.Context, id int64) error {
	tag, err := c.client.Exec(ctx, runtime.OperationDelete, teamTable, teamDeleteQuery, id)
	if err != nil {
		return fmt.Errorf("gen: delete team %d: %w", id, err)
	}
	if err := c.client.forget(ctx, teamKey(id)); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gen: delete team %d: %w", id, runtime.ErrNotFound)
	}
	return nil
}
