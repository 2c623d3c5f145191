package usecase_test

import (
	"context"
	"sync"

	"github.com/jhoicas/Tiempo-api/internal/application/loader"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

const teamID = "team-1"

// requestCtx arma el contexto de una petición con loaders sobre src.
func requestCtx(userID string, role authz.TeamRole, src loader.Sources) context.Context {
	return reqctx.WithContext(context.Background(), &reqctx.Request{
		UserID:   userID,
		TeamID:   teamID,
		TeamRole: role,
		Loaders:  loader.New(src, loader.Config{}, teamID, userID),
	})
}

// ── Repositorio de equipos en memoria ─────────────────────────────────────────

type memTeamRepo struct {
	repository.TeamRepository
	mu      sync.Mutex
	teams   map[string]*entity.Team
	members map[string]*entity.TeamMember
}

func newMemTeamRepo(members ...*entity.TeamMember) *memTeamRepo {
	r := &memTeamRepo{teams: map[string]*entity.Team{}, members: map[string]*entity.TeamMember{}}
	for _, m := range members {
		r.members[m.TeamID+"/"+m.UserID] = m
	}
	return r
}

func (r *memTeamRepo) Create(_ context.Context, t *entity.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[t.ID] = t
	return nil
}

func (r *memTeamRepo) AddMember(_ context.Context, m *entity.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.TeamID+"/"+m.UserID]; ok {
		return domain.ErrDuplicate
	}
	cp := *m
	r.members[m.TeamID+"/"+m.UserID] = &cp
	return nil
}

func (r *memTeamRepo) GetMember(_ context.Context, teamID, userID string) (*entity.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[teamID+"/"+userID]
	if !ok {
		return nil, domain.NotFound("team member")
	}
	cp := *m
	return &cp, nil
}

func (r *memTeamRepo) GetMemberRole(_ context.Context, teamID, userID string) (authz.TeamRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[teamID+"/"+userID]; ok {
		return m.Role, nil
	}
	return authz.TeamRoleNone, nil
}

func (r *memTeamRepo) UpdateMemberRole(_ context.Context, teamID, userID string, role authz.TeamRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[teamID+"/"+userID]
	if !ok {
		return domain.NotFound("team member")
	}
	m.Role = role
	return nil
}

func (r *memTeamRepo) RemoveMember(_ context.Context, teamID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, teamID+"/"+userID)
	return nil
}

func (r *memTeamRepo) LockOwners(_ context.Context, teamID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.members {
		if m.TeamID == teamID && m.Role == authz.TeamRoleOwner {
			out = append(out, m.UserID)
		}
	}
	return out, nil
}

func (r *memTeamRepo) ListMembers(_ context.Context, teamID string, p repository.ListParams) ([]*entity.TeamMember, querybuilder.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.TeamMember
	for _, m := range r.members {
		if m.TeamID == teamID {
			out = append(out, m)
		}
	}
	return out, querybuilder.NewPage(0, len(out), len(out)), nil
}

func (r *memTeamRepo) role(userID string) authz.TeamRole {
	role, _ := r.GetMemberRole(context.Background(), teamID, userID)
	return role
}

// RunTeam ejecuta fn con el mismo repositorio (sin rollback: las validaciones fallan antes de escribir).
func (r *memTeamRepo) RunTeam(_ context.Context, fn func(teams repository.TeamRepository) error) error {
	return fn(r)
}

// ── Repositorio de usuarios en memoria ────────────────────────────────────────

type memUserRepo struct {
	repository.UserRepository
	users map[string]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NotFound("user")
}

func (r *memUserRepo) LockAdmins(_ context.Context) ([]string, error) {
	var out []string
	for _, u := range r.users {
		if u.InstanceRole == authz.InstanceRoleAdmin {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

func (r *memUserRepo) UpdateInstanceRole(_ context.Context, id string, role authz.InstanceRole) error {
	u, ok := r.users[id]
	if !ok {
		return domain.NotFound("user")
	}
	u.InstanceRole = role
	return nil
}

func (r *memUserRepo) RunUsers(_ context.Context, fn func(users repository.UserRepository) error) error {
	return fn(r)
}
