package student

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/admissions/internal/domain/shared"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *Student {
	t.Helper()
	s, err := NewStudent(NewStudentParams{
		ID:        "6F9619FF-8B86-D011-B42D-00C04FC964FF",
		Username:  " alice ",
		Track:     TrackBeginner,
		CreatedAt: t0,
	})
	require.NoError(t, err)
	return s
}

func TestNewStudent(t *testing.T) {
	s := newPending(t)

	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", s.ID)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, StatusPending, s.Status)
	assert.Nil(t, s.OfferDate)
	assert.Nil(t, s.RejectionReason)
	assert.Equal(t, t0, s.CreatedAt)
}

func TestNewStudent_Invalid(t *testing.T) {
	_, err := NewStudent(NewStudentParams{ID: "nope", Username: "a", Track: TrackBeginner})
	assert.True(t, shared.IsValidation(err))

	_, err = NewStudent(NewStudentParams{ID: "6f9619ff-8b86-d011-b42d-00c04fc964ff", Username: "  ", Track: TrackBeginner})
	assert.True(t, shared.IsValidation(err))

	_, err = NewStudent(NewStudentParams{ID: "6f9619ff-8b86-d011-b42d-00c04fc964ff", Username: "a", Track: "EXPERT"})
	assert.ErrorIs(t, err, shared.ErrInvalidTrack)
}

func TestParseTrack(t *testing.T) {
	tr, err := ParseTrack(" advanced ")
	require.NoError(t, err)
	assert.Equal(t, TrackAdvanced, tr)

	_, err = ParseTrack("expert")
	assert.ErrorIs(t, err, shared.ErrInvalidTrack)
}

func TestRef_Validate(t *testing.T) {
	assert.NoError(t, ByID("x").Validate())
	assert.NoError(t, ByUsername("alice").Validate())
	assert.ErrorIs(t, Ref{}.Validate(), shared.ErrInvalidStudentRef)
	assert.ErrorIs(t, Ref{ID: "x", Username: "alice"}.Validate(), shared.ErrInvalidStudentRef)
	assert.ErrorIs(t, Ref{ID: "  "}.Validate(), shared.ErrInvalidStudentRef)
}

func TestRef_Normalize(t *testing.T) {
	assert.Equal(t, Ref{ID: "abc"}, Ref{ID: " ABC "}.Normalize())
	assert.Equal(t, Ref{Username: "Bob"}, Ref{Username: " Bob "}.Normalize())
}

func TestOfferAndAccept(t *testing.T) {
	policy := NewOfferPolicy(7 * 24 * time.Hour)
	s := newPending(t)

	assert.ErrorIs(t, s.Accept(t0, policy), shared.ErrOfferNotValid)

	s.Offer(t0)
	require.NotNil(t, s.OfferDate)
	assert.Equal(t, StatusOffered, s.Status)

	require.NoError(t, s.Accept(t0.Add(24*time.Hour), policy))
	assert.Equal(t, StatusAccepted, s.Status)
	assert.Equal(t, t0, *s.OfferDate)
}

func TestAccept_ExpiredAtBoundary(t *testing.T) {
	policy := NewOfferPolicy(time.Hour)
	s := newPending(t)
	s.Offer(t0)

	assert.True(t, policy.HasValidOffer(s, t0.Add(time.Hour-time.Nanosecond)))
	assert.False(t, policy.HasValidOffer(s, t0.Add(time.Hour)))
	assert.ErrorIs(t, s.Accept(t0.Add(time.Hour), policy), shared.ErrOfferNotValid)
	assert.Equal(t, StatusOffered, s.Status)
}

func TestResetOffer_KeepsStatus(t *testing.T) {
	policy := NewOfferPolicy(time.Hour)
	s := newPending(t)

	s.ResetOffer(t0)
	assert.Equal(t, StatusPending, s.Status)
	assert.False(t, policy.HasValidOffer(s, t0))

	s.Offer(t0)
	s.ResetOffer(t0.Add(50 * time.Minute))
	assert.True(t, policy.HasValidOffer(s, t0.Add(90*time.Minute)))
}

func TestReject(t *testing.T) {
	s := newPending(t)
	s.Offer(t0)

	s.Reject(shared.None[RejectionReason](), t0)
	assert.Equal(t, StatusRejected, s.Status)
	require.NotNil(t, s.RejectionReason)
	assert.Equal(t, ReasonOther, *s.RejectionReason)

	s.Reject(shared.Some(ReasonCapacity), t0)
	assert.Equal(t, ReasonCapacity, *s.RejectionReason)

	s.Offer(t0)
	assert.Nil(t, s.RejectionReason)
}

func TestNewOfferPolicy_Default(t *testing.T) {
	assert.Equal(t, DefaultOfferValidity, NewOfferPolicy(0).Validity)
	assert.Equal(t, DefaultOfferValidity, NewOfferPolicy(-time.Second).Validity)
}

func TestClone_IsDeep(t *testing.T) {
	s := newPending(t)
	s.Offer(t0)
	c := s.Clone()

	*c.OfferDate = t0.Add(time.Hour)
	assert.Equal(t, t0, *s.OfferDate)
}
