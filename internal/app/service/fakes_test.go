package service

import (
	"context"
	"sort"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/storage"
)

// Fakes en memoria que copian la semántica SQL de internal/infra/storage.

type fakeUserRepo struct {
	byDiscord map[string]*domain.User
	nextID    int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byDiscord: make(map[string]*domain.User), nextID: 1}
}

func (f *fakeUserRepo) GetOrCreate(_ context.Context, discordID, username, displayName string, clanRoleID *string) (domain.User, error) {
	if u, ok := f.byDiscord[discordID]; ok {
		u.Username = username
		u.DisplayName = displayName
		if clanRoleID != nil {
			u.ClanRoleID = clanRoleID
		}
		return *u, nil
	}
	u := &domain.User{
		ID:          f.nextID,
		DiscordID:   discordID,
		Username:    username,
		DisplayName: displayName,
		ClanRoleID:  clanRoleID,
	}
	f.nextID++
	f.byDiscord[discordID] = u
	return *u, nil
}

func (f *fakeUserRepo) GetByDiscordID(_ context.Context, discordID string) (domain.User, error) {
	if u, ok := f.byDiscord[discordID]; ok {
		return *u, nil
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUserRepo) byID(id int64) (*domain.User, bool) {
	for _, u := range f.byDiscord {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

func (f *fakeUserRepo) ListByClan(_ context.Context, clanRoleID string) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.byDiscord {
		if u.ClanRoleID != nil && *u.ClanRoleID == clanRoleID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) FindByDiscordIDs(_ context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User)
	for _, id := range ids {
		if u, ok := f.byDiscord[id]; ok {
			out[id] = *u
		}
	}
	return out, nil
}

type fakeAFKRepo struct {
	users   *fakeUserRepo
	windows map[int64]*domain.AFKWindow
	nextID  int64
}

func newFakeAFKRepo(users *fakeUserRepo) *fakeAFKRepo {
	return &fakeAFKRepo{users: users, windows: make(map[int64]*domain.AFKWindow), nextID: 1}
}

func (f *fakeAFKRepo) Create(_ context.Context, w domain.AFKWindow) (domain.AFKWindow, error) {
	w.ID = f.nextID
	f.nextID++
	stored := w
	f.windows[w.ID] = &stored
	return w, nil
}

func (f *fakeAFKRepo) Get(_ context.Context, id int64) (domain.AFKWindow, error) {
	if w, ok := f.windows[id]; ok && !w.IsDeleted {
		return *w, nil
	}
	return domain.AFKWindow{}, domain.ErrNotFound
}

func (f *fakeAFKRepo) ListLive(_ context.Context, userID int64) ([]domain.AFKWindow, error) {
	var out []domain.AFKWindow
	for _, w := range f.windows {
		if w.UserID == userID && w.Live() {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeAFKRepo) UpdateEnd(_ context.Context, id int64, end time.Time) (domain.AFKWindow, error) {
	w, ok := f.windows[id]
	if !ok {
		return domain.AFKWindow{}, domain.ErrNotFound
	}
	w.EndDate = end
	return *w, nil
}

func (f *fakeAFKRepo) EndEarly(_ context.Context, userID int64, windowID *int64, now time.Time) (int64, error) {
	var n int64
	for _, w := range f.windows {
		if w.UserID != userID || !w.Live() {
			continue
		}
		if windowID != nil && w.ID != *windowID {
			continue
		}
		t := now
		w.EndedAt = &t
		w.IsActive = false
		n++
	}
	return n, nil
}

func (f *fakeAFKRepo) DeleteHard(_ context.Context, id int64) error {
	if _, ok := f.windows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.windows, id)
	return nil
}

func (f *fakeAFKRepo) SoftDelete(_ context.Context, userID int64, onlyActive bool, windowID *int64, now time.Time) (int64, error) {
	var n int64
	for _, w := range f.windows {
		if w.UserID != userID || w.IsDeleted {
			continue
		}
		if onlyActive && !w.IsActive {
			continue
		}
		if windowID != nil && w.ID != *windowID {
			continue
		}
		w.IsDeleted = true
		w.IsActive = false
		if w.EndedAt == nil {
			t := now
			w.EndedAt = &t
		}
		n++
	}
	return n, nil
}

func (f *fakeAFKRepo) RefreshActivation(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, w := range f.windows {
		want := w.ActiveAt(now)
		if w.IsActive != want {
			w.IsActive = want
			n++
		}
	}
	return n, nil
}

func (f *fakeAFKRepo) ActiveNow(_ context.Context, clanRoleID, discordID *string, now time.Time) ([]domain.UserWindow, error) {
	return f.collect(clanRoleID, discordID, func(w *domain.AFKWindow) bool {
		return w.IsActive && w.ActiveAt(now)
	})
}

func (f *fakeAFKRepo) ActiveAndFuture(_ context.Context, clanRoleID, discordID *string, now time.Time) ([]domain.UserWindow, error) {
	return f.collect(clanRoleID, discordID, func(w *domain.AFKWindow) bool {
		return w.Live() && !w.EndDate.Before(now)
	})
}

func (f *fakeAFKRepo) collect(clanRoleID, discordID *string, keep func(*domain.AFKWindow) bool) ([]domain.UserWindow, error) {
	var out []domain.UserWindow
	for _, w := range f.windows {
		if !keep(w) {
			continue
		}
		u, ok := f.users.byID(w.UserID)
		if !ok {
			continue
		}
		if clanRoleID != nil && (u.ClanRoleID == nil || *u.ClanRoleID != *clanRoleID) {
			continue
		}
		if discordID != nil && u.DiscordID != *discordID {
			continue
		}
		out = append(out, domain.UserWindow{User: *u, Window: *w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window.ID < out[j].Window.ID })
	return out, nil
}

func (f *fakeAFKRepo) History(_ context.Context, userID int64, limit int) ([]domain.AFKWindow, error) {
	var out []domain.AFKWindow
	for _, w := range f.windows {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAFKRepo) Stats(_ context.Context, clanRoleID *string, now time.Time) (domain.AFKStats, error) {
	var s domain.AFKStats
	uniq := make(map[int64]bool)
	var totalDur time.Duration
	for _, w := range f.windows {
		if w.IsDeleted {
			continue
		}
		if clanRoleID != nil {
			u, ok := f.users.byID(w.UserID)
			if !ok || u.ClanRoleID == nil || *u.ClanRoleID != *clanRoleID {
				continue
			}
		}
		s.Total++
		uniq[w.UserID] = true
		if w.IsActive && !now.Before(w.StartDate) && !now.After(w.EndDate) {
			s.ActiveNow++
		}
		if w.EndedAt == nil && w.StartDate.After(now) {
			s.ScheduledFuture++
		}
		end := w.EndDate
		if w.EndedAt != nil {
			end = *w.EndedAt
		}
		totalDur += end.Sub(w.StartDate)
	}
	s.UniqueUsers = len(uniq)
	if s.Total > 0 {
		s.AvgDuration = totalDur / time.Duration(s.Total)
	}
	return s, nil
}

func (f *fakeAFKRepo) WasAFKAt(_ context.Context, discordID string, t time.Time) (bool, error) {
	u, ok := f.users.byDiscord[discordID]
	if !ok {
		return false, nil
	}
	for _, w := range f.windows {
		if w.UserID != u.ID || w.IsDeleted {
			continue
		}
		if t.Before(w.StartDate) || t.After(w.EndDate) {
			continue
		}
		if w.EndedAt != nil && w.EndedAt.Before(t) {
			continue
		}
		return true, nil
	}
	return false, nil
}

type fakeMembershipRepo struct {
	users      *fakeUserRepo
	intervals  []*domain.ClanMembership
	nextID     int64
	applyCalls int
}

func newFakeMembershipRepo(users *fakeUserRepo) *fakeMembershipRepo {
	return &fakeMembershipRepo{users: users, nextID: 1}
}

func (f *fakeMembershipRepo) ActiveByClan(_ context.Context, clanRoleID string) (map[string]domain.ClanMembership, error) {
	out := make(map[string]domain.ClanMembership)
	for _, m := range f.intervals {
		if m.ClanRoleID != clanRoleID || !m.IsActive {
			continue
		}
		if u, ok := f.users.byID(m.UserID); ok {
			out[u.DiscordID] = *m
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) ApplyRosterDiff(ctx context.Context, clanRoleID string, joined []domain.RosterMember, leftUserIDs []int64, now time.Time) error {
	f.applyCalls++
	for _, id := range leftUserIDs {
		for _, m := range f.intervals {
			if m.UserID == id && m.ClanRoleID == clanRoleID && m.IsActive {
				t := now
				m.LeftAt = &t
				m.IsActive = false
			}
		}
		if u, ok := f.users.byID(id); ok {
			u.ClanRoleID = nil
		}
	}
	for _, rm := range joined {
		u, err := f.users.GetOrCreate(ctx, rm.DiscordID, rm.Username, rm.DisplayName, &clanRoleID)
		if err != nil {
			return err
		}
		f.intervals = append(f.intervals, &domain.ClanMembership{
			ID: f.nextID, UserID: u.ID, ClanRoleID: clanRoleID, JoinedAt: now, IsActive: true,
		})
		f.nextID++
	}
	return nil
}

func (f *fakeMembershipRepo) Open(_ context.Context, userID int64, clanRoleID string, now time.Time) (domain.ClanMembership, error) {
	for _, m := range f.intervals {
		if m.UserID == userID && m.ClanRoleID == clanRoleID && m.IsActive {
			return domain.ClanMembership{}, storage.ErrDuplicateActive
		}
	}
	m := &domain.ClanMembership{
		ID: f.nextID, UserID: userID, ClanRoleID: clanRoleID, JoinedAt: now, IsActive: true,
	}
	f.nextID++
	f.intervals = append(f.intervals, m)
	return *m, nil
}

func (f *fakeMembershipRepo) Close(_ context.Context, userID int64, clanRoleID string, now time.Time) (bool, error) {
	closed := false
	for _, m := range f.intervals {
		if m.UserID == userID && m.ClanRoleID == clanRoleID && m.IsActive {
			t := now
			m.LeftAt = &t
			m.IsActive = false
			closed = true
		}
	}
	if closed {
		if u, ok := f.users.byID(userID); ok {
			u.ClanRoleID = nil
		}
	}
	return closed, nil
}

func (f *fakeMembershipRepo) History(_ context.Context, hf storage.HistoryFilter) ([]domain.MemberInterval, error) {
	var out []domain.MemberInterval
	for _, m := range f.intervals {
		if hf.ClanRoleID != nil && m.ClanRoleID != *hf.ClanRoleID {
			continue
		}
		if hf.UserID != nil && m.UserID != *hf.UserID {
			continue
		}
		if !hf.IncludeInactive && !m.IsActive {
			continue
		}
		u, ok := f.users.byID(m.UserID)
		if !ok {
			continue
		}
		out = append(out, domain.MemberInterval{User: *u, Membership: *m})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Membership.JoinedAt.After(out[j].Membership.JoinedAt)
	})
	if hf.Limit > 0 && len(out) > hf.Limit {
		out = out[:hf.Limit]
	}
	return out, nil
}
