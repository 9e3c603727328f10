package gen

// Member is a row of the members table. Username is nullable and a member
// may belong to no team.
type Member struct {
	ID       int64       `json:"id" db:"id"`
	Username *string     `json:"username" db:"username"`
	Age      int         `json:"age" db:"age"`
	TeamID   *int64      `json:"teamId,omitempty" db:"team_id"`
	Edges    MemberEdges `json:"edges,omitempty"`
}

// MemberEdges holds the relations loaded for a Member.
type MemberEdges struct {
	Team *Team `json:"team,omitempty"`
}

// NewMember returns a member of team. A nil team leaves the member unassigned.
func NewMember(username string, age int, team *Team) *Member {
	m := &Member{Username: &username, Age: age}
	if team != nil {
		m.ChangeTeam(team)
	}
	return m
}

// ChangeTeam moves the member to team, keeping both sides of the relation in
// step.
func (m *Member) ChangeTeam(team *Team) {
	if prev := m.Edges.Team; prev != nil && prev != team {
		prev.removeMember(m)
	}
	m.Edges.Team = team
	if team == nil {
		m.TeamID = nil
		return
	}
	id := team.ID
	m.TeamID = &id
	team.addMember(m)
}

// Team is a row of the teams table.
type Team struct {
	ID    int64     `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Edges TeamEdges `json:"edges,omitempty"`
}

// TeamEdges holds the relations loaded for a Team.
type TeamEdges struct {
	Members []*Member `json:"members,omitempty"`
}

// NewTeam returns an unsaved team.
func NewTeam(name string) *Team {
	return &Team{Name: name}
}

func (t *Team) addMember(m *Member) {
	for _, existing := range t.Edges.Members {
		if existing == m {
			return
		}
	}
	t.Edges.Members = append(t.Edges.Members, m)
}

func (t *Team) removeMember(m *Member) {
	kept := t.Edges.Members[:0]
	for _, existing := range t.Edges.Members {
		if existing != m {
			kept = append(kept, existing)
		}
	}
	t.Edges.Members = kept
}

// MemberDto carries a member's username and age.
type MemberDto struct {
	Username *string `json:"username" db:"username"`
	Age      int     `json:"age" db:"age"`
}

// NewMemberDto is the constructor used by QMemberDto and Constructor projections.
func NewMemberDto(username *string, age int) MemberDto {
	return MemberDto{Username: username, Age: age}
}

// SetUsername and SetAge let Bean projections populate the DTO.
func (d *MemberDto) SetUsername(username *string) { d.Username = username }

func (d *MemberDto) SetAge(age int) { d.Age = age }

// MemberTeamDto is a member joined with its team, as returned by Search.
type MemberTeamDto struct {
	MemberID int64   `json:"memberId" db:"member_id"`
	Username *string `json:"username" db:"username"`
	Age      int     `json:"age" db:"age"`
	TeamID   *int64  `json:"teamId" db:"team_id"`
	TeamName *string `json:"teamName" db:"team_name"`
}

// MemberSearchCondition filters Search. Empty strings and nil bounds are
// ignored.
type MemberSearchCondition struct {
	Username string `query:"username" json:"username" validate:"omitempty,max=255"`
	TeamName string `query:"teamName" json:"teamName" validate:"omitempty,max=255"`
	AgeGoe   *int   `query:"ageGoe" json:"ageGoe" validate:"omitempty,gte=0"`
	AgeLoe   *int   `query:"ageLoe" json:"ageLoe" validate:"omitempty,gte=0"`
}
