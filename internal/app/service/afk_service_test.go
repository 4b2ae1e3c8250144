package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/lock"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestAFKService() (*AFKService, *fakeAFKRepo) {
	users := newFakeUserRepo()
	afk := newFakeAFKRepo(users)
	svc := NewAFKService(users, afk, lock.New())
	svc.now = func() time.Time { return testNow }
	return svc, afk
}

func declareParams(start, end time.Time) DeclareParams {
	return DeclareParams{
		DiscordID: "111", Username: "ragnar", DisplayName: "Ragnar",
		Start: start, End: end, Reason: "vacaciones",
	}
}

func at(day, hour int) time.Time {
	return time.Date(2026, 6, day, hour, 0, 0, 0, time.UTC)
}

func TestDeclareRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestAFKService()

	_, err := svc.Declare(context.Background(), declareParams(at(20, 10), at(20, 10)))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = svc.Declare(context.Background(), declareParams(at(20, 10), at(19, 10)))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestDeclareRejectsOverlapInclusive(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	_, err := svc.Declare(ctx, declareParams(at(20, 0), at(22, 0)))
	require.NoError(t, err)

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"identico", at(20, 0), at(22, 0)},
		{"contenido", at(20, 12), at(21, 12)},
		{"pisa el comienzo", at(19, 0), at(20, 12)},
		{"pisa el final", at(21, 12), at(23, 0)},
		{"toca justo el borde final", at(22, 0), at(23, 0)},
		{"toca justo el borde inicial", at(19, 0), at(20, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Declare(ctx, declareParams(tc.start, tc.end))
			var overlap *domain.OverlapError
			require.ErrorAs(t, err, &overlap)
			assert.Equal(t, at(20, 0), overlap.Existing.StartDate)
		})
	}

	// pegada pero sin tocar: un segundo después del borde entra bien
	_, err = svc.Declare(ctx, declareParams(at(22, 0).Add(time.Second), at(23, 0)))
	assert.NoError(t, err)
}

func TestDeclareIgnoresDeadWindows(t *testing.T) {
	svc, repo := newTestAFKService()
	ctx := context.Background()

	w, err := svc.Declare(ctx, declareParams(at(20, 0), at(22, 0)))
	require.NoError(t, err)

	// soft-deleted no bloquea
	_, err = repo.SoftDelete(ctx, w.UserID, false, &w.ID, testNow)
	require.NoError(t, err)
	w2, err := svc.Declare(ctx, declareParams(at(20, 0), at(22, 0)))
	require.NoError(t, err)

	// ended-early tampoco
	_, err = repo.EndEarly(ctx, w2.UserID, &w2.ID, testNow)
	require.NoError(t, err)
	_, err = svc.Declare(ctx, declareParams(at(20, 0), at(22, 0)))
	assert.NoError(t, err)
}

func TestDeclareActivatesImmediatelyWhenStarted(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	w, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, w.IsActive, "ya arrancó, no debería esperar al sweep")

	w2, err := svc.Declare(ctx, declareParams(at(20, 0), at(21, 0)))
	require.NoError(t, err)
	assert.False(t, w2.IsActive, "futura, la activa el sweep")
}

func TestQuickDeclare(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	_, err := svc.QuickDeclare(ctx, declareParams(time.Time{}, time.Time{}), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	w, err := svc.QuickDeclare(ctx, declareParams(time.Time{}, time.Time{}), 1)
	require.NoError(t, err)
	assert.Equal(t, testNow, w.StartDate)
	assert.Equal(t, time.Date(2026, 6, 15, 23, 59, 59, 0, time.UTC), w.EndDate)
	assert.True(t, w.IsActive)
}

func TestQuickDeclareMultipleDays(t *testing.T) {
	svc, _ := newTestAFKService()

	w, err := svc.QuickDeclare(context.Background(), declareParams(time.Time{}, time.Time{}), 3)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 17, 23, 59, 59, 0, time.UTC), w.EndDate)
}

func TestReturnEarly(t *testing.T) {
	svc, repo := newTestAFKService()
	ctx := context.Background()

	// user desconocido: 0 cerradas, sin error
	n, err := svc.ReturnEarly(ctx, "999", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	w, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	require.NoError(t, err)

	n, err = svc.ReturnEarly(ctx, "111", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, testNow, *got.EndedAt)
	assert.False(t, got.IsActive)

	// segunda vuelta: ya no hay nada vivo que cerrar
	n, err = svc.ReturnEarly(ctx, "111", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExtend(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	w, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	require.NoError(t, err)

	_, err = svc.Extend(ctx, "111", w.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Extend(ctx, "999", w.ID, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// otra persona no puede extender la mía
	_, err = svc.Declare(ctx, DeclareParams{
		DiscordID: "222", Username: "lagertha",
		Start: at(20, 0), End: at(21, 0),
	})
	require.NoError(t, err)
	_, err = svc.Extend(ctx, "222", w.ID, 2)
	assert.ErrorIs(t, err, domain.ErrWrongOwner)

	got, err := svc.Extend(ctx, "111", w.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(3*time.Hour), got.EndDate)
}

func TestExtendRejectsNonActive(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	future, err := svc.Declare(ctx, declareParams(at(20, 0), at(21, 0)))
	require.NoError(t, err)
	_, err = svc.Extend(ctx, "111", future.ID, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyEnded)

	active, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	require.NoError(t, err)
	_, err = svc.ReturnEarly(ctx, "111", &active.ID)
	require.NoError(t, err)
	_, err = svc.Extend(ctx, "111", active.ID, 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyEnded)
}

func TestRemoveFuture(t *testing.T) {
	svc, repo := newTestAFKService()
	ctx := context.Background()

	active, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	require.NoError(t, err)
	_, err = svc.RemoveFuture(ctx, "111", active.ID)
	assert.ErrorIs(t, err, domain.ErrNotFuture, "las activas se cierran con return, no se borran")

	future, err := svc.Declare(ctx, declareParams(at(20, 0), at(21, 0)))
	require.NoError(t, err)

	_, err = svc.RemoveFuture(ctx, "999", future.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	removed, err := svc.RemoveFuture(ctx, "111", future.ID)
	require.NoError(t, err)
	assert.Equal(t, future.ID, removed.ID)

	_, err = repo.Get(ctx, future.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "borrado duro, sin rastro")
}

func TestSoftDeleteModes(t *testing.T) {
	svc, repo := newTestAFKService()
	ctx := context.Background()

	active, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	require.NoError(t, err)
	future, err := svc.Declare(ctx, declareParams(at(20, 0), at(21, 0)))
	require.NoError(t, err)

	// onlyActive: la futura queda viva
	n, err := svc.SoftDelete(ctx, "111", false, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got, err := repo.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)

	_, err = repo.Get(ctx, active.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// all: barre lo que queda
	n, err = svc.SoftDelete(ctx, "111", true, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// el historial conserva las borradas
	hist, err := svc.History(ctx, "111", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestSoftDeleteSpecificWindow(t *testing.T) {
	svc, repo := newTestAFKService()
	ctx := context.Background()

	w1, err := svc.Declare(ctx, declareParams(at(20, 0), at(21, 0)))
	require.NoError(t, err)
	w2, err := svc.Declare(ctx, declareParams(at(22, 0), at(23, 0)))
	require.NoError(t, err)

	n, err := svc.SoftDelete(ctx, "111", true, &w1.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.Get(ctx, w2.ID)
	assert.NoError(t, err)
}

func TestRefreshActivationSweep(t *testing.T) {
	svc, repo := newTestAFKService()
	ctx := context.Background()

	starting, err := svc.Declare(ctx, declareParams(testNow.Add(30*time.Minute), testNow.Add(2*time.Hour)))
	require.NoError(t, err)
	expiring, err := svc.Declare(ctx, DeclareParams{
		DiscordID: "222", Username: "lagertha",
		Start: testNow.Add(-2 * time.Hour), End: testNow.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	require.True(t, expiring.IsActive)

	// una hora después: la futura arrancó, la activa expiró
	svc.now = func() time.Time { return testNow.Add(time.Hour) }

	n, err := svc.RefreshActivation(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, _ := repo.Get(ctx, starting.ID)
	assert.True(t, got.IsActive)
	got, _ = repo.Get(ctx, expiring.ID)
	assert.False(t, got.IsActive)

	// segunda pasada con el mismo reloj: nada que tocar
	n, err = svc.RefreshActivation(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestActiveNowFilters(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	clanA := "rolA"
	_, err := svc.Declare(ctx, DeclareParams{
		DiscordID: "111", Username: "ragnar", ClanRoleID: &clanA,
		Start: testNow.Add(-time.Hour), End: testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	clanB := "rolB"
	_, err = svc.Declare(ctx, DeclareParams{
		DiscordID: "222", Username: "lagertha", ClanRoleID: &clanB,
		Start: testNow.Add(-time.Hour), End: testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	// futura: no aparece en ActiveNow pero sí en ActiveAndFuture
	_, err = svc.Declare(ctx, DeclareParams{
		DiscordID: "333", Username: "floki",
		Start: at(20, 0), End: at(21, 0),
	})
	require.NoError(t, err)

	all, err := svc.ActiveNow(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyA, err := svc.ActiveNow(ctx, &clanA, nil)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "111", onlyA[0].User.DiscordID)

	upcoming, err := svc.ActiveAndFuture(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, upcoming, 3)
}

func TestWasAFKAt(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	w, err := svc.Declare(ctx, declareParams(at(20, 0), at(22, 0)))
	require.NoError(t, err)

	ok, err := svc.WasAFKAt(ctx, "111", at(21, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.WasAFKAt(ctx, "111", at(23, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.WasAFKAt(ctx, "nadie", at(21, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	// ended-early cubre hasta el ended_at, no hasta el end original
	svc.now = func() time.Time { return at(21, 0) }
	_, err = svc.ReturnEarly(ctx, "111", &w.ID)
	require.NoError(t, err)
	ok, err = svc.WasAFKAt(ctx, "111", at(21, 30))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	_, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	require.NoError(t, err)
	_, err = svc.Declare(ctx, declareParams(at(20, 0), at(21, 0)))
	require.NoError(t, err)
	_, err = svc.Declare(ctx, DeclareParams{
		DiscordID: "222", Username: "lagertha",
		Start: testNow.Add(-time.Hour), End: testNow.Add(time.Hour),
	})
	require.NoError(t, err)

	s, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.UniqueUsers)
	assert.Equal(t, 2, s.ActiveNow)
	assert.Equal(t, 1, s.ScheduledFuture)
	assert.NotZero(t, s.AvgDuration)
}

// Una ventana consultada justo en su instante final cuenta igual en stats
// que en el listado de activos.
func TestStatsCountsWindowEndingNow(t *testing.T) {
	svc, _ := newTestAFKService()
	ctx := context.Background()

	_, err := svc.Declare(ctx, declareParams(testNow.Add(-time.Hour), testNow))
	require.NoError(t, err)

	listed, err := svc.ActiveNow(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	s, err := svc.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ActiveNow)
}

func TestDeclareConcurrentNoOverlapSlipsThrough(t *testing.T) {
	svc, repo := newTestAFKService()
	ctx := context.Background()

	const goroutines = 10
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			_, err := svc.Declare(ctx, declareParams(at(20, 0), at(22, 0)))
			errs <- err
		}()
	}

	okCount := 0
	for i := 0; i < goroutines; i++ {
		if err := <-errs; err == nil {
			okCount++
		} else {
			var overlap *domain.OverlapError
			require.True(t, errors.As(err, &overlap))
		}
	}
	assert.Equal(t, 1, okCount, "solo uno gana, el resto choca con overlap")
	live, err := repo.ListLive(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}
