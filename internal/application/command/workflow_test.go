package command_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/admissions/internal/application/command"
	"github.com/cohort-hub/admissions/internal/application/query"
	"github.com/cohort-hub/admissions/internal/domain/access"
	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
	"github.com/cohort-hub/admissions/internal/infrastructure/persistence/memory"
	"github.com/cohort-hub/admissions/pkg/timeutil"
)

var (
	start = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

	admin    = access.Caller{Username: "dean", Roles: []access.Role{access.RoleAdmin}}
	reviewer = access.Caller{Username: "rev1", Roles: []access.Role{access.RoleReviewer}}
)

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(_ context.Context, e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	store     *memory.Store
	clock     *timeutil.ManualClock
	events    *recorder
	submit    *command.SubmitRatingHandler
	decisions *command.AdmissionDecisionHandler
	accept    *command.AcceptOfferHandler
	next      *query.NextUnratedStudentHandler
	top       *query.TopRatedHandler
}

func newFixture(t *testing.T, validity time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		clock:  timeutil.NewManualClock(start),
		events: &recorder{},
	}
	deps := command.Deps{Clock: f.clock, Events: f.events}
	f.submit = command.NewSubmitRatingHandler(f.store, deps)
	f.decisions = command.NewAdmissionDecisionHandler(f.store, deps)
	f.accept = command.NewAcceptOfferHandler(f.store, student.NewOfferPolicy(validity), deps)
	f.next = query.NewNextUnratedStudentHandler(f.store, nil)
	f.top = query.NewTopRatedHandler(f.store, query.TopRatedOptions{})
	return f
}

func (f *fixture) add(t *testing.T, id, username string, track student.Track, createdAt time.Time) {
	t.Helper()
	s, err := student.NewStudent(student.NewStudentParams{
		ID: id, Username: username, Track: track, CreatedAt: createdAt,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Create(context.Background(), s))
}

func studentCaller(username string) access.Caller {
	return access.Caller{Username: username, Roles: []access.Role{access.RoleStudent}}
}

func TestAdmissionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 48*time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start.Add(-time.Hour))

	// Queue -> rate.
	next, err := f.next.Handle(ctx, reviewer, query.NextUnratedStudentQuery{})
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "alice", next.Username)

	r, err := f.submit.Handle(ctx, reviewer, command.SubmitRatingCommand{Student: student.ByID(next.ID), Rating: 9})
	require.NoError(t, err)
	assert.Equal(t, "rev1", r.RatedBy)
	assert.Equal(t, start, r.CreatedAt)

	next, err = f.next.Handle(ctx, reviewer, query.NextUnratedStudentQuery{})
	require.NoError(t, err)
	assert.Nil(t, next)

	// Offer -> accept within the window.
	offered, err := f.decisions.Offer(ctx, admin, command.OfferAdmissionCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)
	assert.Equal(t, student.StatusOffered, offered.Status)
	assert.Equal(t, start, *offered.OfferDate)

	f.clock.Advance(24 * time.Hour)
	accepted, err := f.accept.Handle(ctx, studentCaller("alice"))
	require.NoError(t, err)
	assert.Equal(t, student.StatusAccepted, accepted.Status)
	assert.Equal(t, start, *accepted.OfferDate)

	assert.Equal(t, []shared.EventType{
		shared.EventRatingSubmitted,
		shared.EventAdmissionOffered,
		shared.EventOfferAccepted,
	}, f.events.types())
}

func TestAcceptOffer_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 48*time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)

	_, err := f.decisions.Offer(ctx, admin, command.OfferAdmissionCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	_, err = f.accept.Handle(ctx, studentCaller("alice"))
	assert.ErrorIs(t, err, shared.ErrOfferNotValid)

	// Resetting the offer restarts the window.
	_, err = f.decisions.ResetOffer(ctx, admin, command.ResetAdmissionOfferCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)

	f.clock.Advance(47 * time.Hour)
	s, err := f.accept.Handle(ctx, studentCaller("alice"))
	require.NoError(t, err)
	assert.Equal(t, student.StatusAccepted, s.Status)
}

func TestAcceptOffer_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)

	_, err := f.accept.Handle(ctx, studentCaller("alice"))
	assert.ErrorIs(t, err, shared.ErrOfferNotValid, "pending student has no offer")

	_, err = f.accept.Handle(ctx, studentCaller("nobody"))
	assert.ErrorIs(t, err, shared.ErrApplicationNotFound)

	_, err = f.accept.Handle(ctx, access.Caller{Roles: []access.Role{access.RoleStudent}})
	assert.ErrorIs(t, err, shared.ErrStudentIdentity)

	_, err = f.accept.Handle(ctx, admin)
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)

	// Reset without a prior offer leaves the student pending.
	_, err = f.decisions.ResetOffer(ctx, admin, command.ResetAdmissionOfferCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)
	_, err = f.accept.Handle(ctx, studentCaller("alice"))
	assert.ErrorIs(t, err, shared.ErrOfferNotValid)
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)

	s, err := f.decisions.Reject(ctx, admin, command.RejectStudentCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)
	assert.Equal(t, student.StatusRejected, s.Status)
	assert.Equal(t, student.ReasonOther, *s.RejectionReason)

	s, err = f.decisions.Reject(ctx, admin, command.RejectStudentCommand{
		Student: student.ByUsername("alice"),
		Reason:  shared.Some(student.ReasonTimezone),
	})
	require.NoError(t, err)
	assert.Equal(t, student.ReasonTimezone, *s.RejectionReason)

	_, err = f.decisions.Reject(ctx, admin, command.RejectStudentCommand{
		Student: student.ByUsername("alice"),
		Reason:  shared.Some(student.RejectionReason("BORED")),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidReason)

	// A rejected student can be offered again.
	s, err = f.decisions.Offer(ctx, admin, command.OfferAdmissionCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)
	assert.Equal(t, student.StatusOffered, s.Status)
	assert.Nil(t, s.RejectionReason)
}

func TestAcceptOffer_RacesReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)
	ref := student.ByUsername("alice")

	var accepted, lost int
	for i := 0; i < 200; i++ {
		_, err := f.decisions.Offer(ctx, admin, command.OfferAdmissionCommand{Student: ref})
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			acceptRes *student.Student
			acceptErr error
			rejectErr error
		)
		ready := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-ready
			acceptRes, acceptErr = f.accept.Handle(ctx, studentCaller("alice"))
		}()
		go func() {
			defer wg.Done()
			<-ready
			_, rejectErr = f.decisions.Reject(ctx, admin, command.RejectStudentCommand{Student: ref})
		}()
		close(ready)
		wg.Wait()

		require.NoError(t, rejectErr)
		final, err := f.store.Get(ctx, ref)
		require.NoError(t, err)

		// Reject always lands; accept either ran first or saw REJECTED.
		require.Equal(t, student.StatusRejected, final.Status, "iteration %d", i)
		if acceptErr != nil {
			require.ErrorIs(t, acceptErr, shared.ErrOfferNotValid, "iteration %d", i)
			lost++
			continue
		}
		require.Equal(t, student.StatusAccepted, acceptRes.Status, "iteration %d", i)
		accepted++
	}
	assert.Equal(t, 200, accepted+lost)
}

func TestAcceptOffer_ConcurrentAcceptsSucceedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)

	_, err := f.decisions.Offer(ctx, admin, command.OfferAdmissionCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)

	const n = 16
	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	ready := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-ready
			_, errs[i] = f.accept.Handle(ctx, studentCaller("alice"))
		}(i)
	}
	close(ready)
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrOfferNotValid)
	}
	assert.Equal(t, 1, ok)

	final, err := f.store.Get(ctx, student.ByUsername("alice"))
	require.NoError(t, err)
	assert.Equal(t, student.StatusAccepted, final.Status)
}

func TestDecisions_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)
	ref := student.ByUsername("alice")

	_, err := f.decisions.Offer(ctx, reviewer, command.OfferAdmissionCommand{Student: ref})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)
	_, err = f.decisions.ResetOffer(ctx, studentCaller("alice"), command.ResetAdmissionOfferCommand{Student: ref})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)
	_, err = f.decisions.Reject(ctx, access.Anonymous, command.RejectStudentCommand{Student: ref})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)

	got, err := f.store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, student.StatusPending, got.Status)
	assert.Empty(t, f.events.types())
}

func TestDecisions_BadReference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)

	_, err := f.decisions.Offer(ctx, admin, command.OfferAdmissionCommand{})
	assert.ErrorIs(t, err, shared.ErrInvalidStudentRef)

	_, err = f.decisions.Offer(ctx, admin, command.OfferAdmissionCommand{Student: student.ByUsername("ghost")})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestSubmitRating_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)
	ref := student.ByUsername("alice")

	for _, v := range []float64{0, 11, 1.5} {
		_, err := f.submit.Handle(ctx, reviewer, command.SubmitRatingCommand{Student: ref, Rating: v})
		assert.ErrorIs(t, err, shared.ErrInvalidRating, "rating %v", v)
	}

	_, err := f.submit.Handle(ctx, reviewer, command.SubmitRatingCommand{Student: student.Ref{ID: "x", Username: "alice"}, Rating: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidStudentRef)

	_, err = f.submit.Handle(ctx, reviewer, command.SubmitRatingCommand{Student: student.ByUsername("ghost"), Rating: 5})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	_, err = f.submit.Handle(ctx, reviewer, command.SubmitRatingCommand{Student: ref, Rating: 5})
	require.NoError(t, err)
	_, err = f.submit.Handle(ctx, reviewer, command.SubmitRatingCommand{Student: ref, Rating: 6})
	assert.ErrorIs(t, err, shared.ErrAlreadyRated)

	// Admins may review too.
	_, err = f.submit.Handle(ctx, admin, command.SubmitRatingCommand{Student: ref, Rating: 6})
	assert.NoError(t, err)

	_, err = f.submit.Handle(ctx, studentCaller("alice"), command.SubmitRatingCommand{Student: ref, Rating: 10})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)

	_, err = f.submit.Handle(ctx, access.Caller{Roles: []access.Role{access.RoleReviewer}}, command.SubmitRatingCommand{Student: ref, Rating: 10})
	assert.ErrorIs(t, err, shared.ErrReviewerIdentity)
}

func TestTopRated_TiesAndPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Hour)
	f.add(t, "00000000-0000-0000-0000-000000000003", "carol", student.TrackAdvanced, start)
	f.add(t, "00000000-0000-0000-0000-000000000002", "bob", student.TrackBeginner, start)
	f.add(t, "00000000-0000-0000-0000-000000000001", "alice", student.TrackBeginner, start)
	f.add(t, "00000000-0000-0000-0000-000000000004", "dave", student.TrackBeginner, start)

	r2 := access.Caller{Username: "rev2", Roles: []access.Role{access.RoleReviewer}}
	submit := func(c access.Caller, username string, v float64) {
		_, err := f.submit.Handle(ctx, c, command.SubmitRatingCommand{Student: student.ByUsername(username), Rating: v})
		require.NoError(t, err)
	}
	submit(reviewer, "carol", 7)
	submit(r2, "carol", 8) // 7.5
	submit(reviewer, "bob", 9)
	submit(r2, "bob", 6) // 7.5
	submit(reviewer, "alice", 10)
	// dave is never rated and must not appear.

	entries, err := f.top.Handle(ctx, admin, query.TopRatedQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "alice", entries[0].Student.Username)
	assert.Equal(t, "bob", entries[1].Student.Username, "tie broken by id ascending")
	assert.Equal(t, "carol", entries[2].Student.Username)
	assert.Equal(t, 7.5, entries[1].AverageAdmissionRating)

	page, err := f.top.Handle(ctx, admin, query.TopRatedQuery{Skip: shared.Some(1), Take: shared.Some(1)})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].Student.Username)
	assert.EqualValues(t, 2, page[0].Rank)

	beginners, err := f.top.Handle(ctx, admin, query.TopRatedQuery{Track: shared.Some(student.TrackBeginner)})
	require.NoError(t, err)
	require.Len(t, beginners, 2)

	_, err = f.top.Handle(ctx, reviewer, query.TopRatedQuery{})
	assert.ErrorIs(t, err, shared.ErrNotAuthorized)

	_, err = f.top.Handle(ctx, admin, query.TopRatedQuery{Skip: shared.Some(-1)})
	assert.ErrorIs(t, err, shared.ErrInvalidPage)
}

func TestDeps_PublishFailureDoesNotFailCommand(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s, err := student.NewStudent(student.NewStudentParams{
		ID: "00000000-0000-0000-0000-000000000001", Username: "alice", Track: student.TrackBeginner, CreatedAt: start,
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, s))

	h := command.NewAdmissionDecisionHandler(store, command.Deps{Events: failingPublisher{}})
	got, err := h.Offer(ctx, admin, command.OfferAdmissionCommand{Student: student.ByUsername("alice")})
	require.NoError(t, err)
	assert.Equal(t, student.StatusOffered, got.Status)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, shared.Event) error {
	return assert.AnError
}
