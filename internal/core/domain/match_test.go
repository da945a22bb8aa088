package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatusValid(t *testing.T) {
	assert.True(t, MatchStatusSuggested.Valid())
	assert.True(t, MatchStatusAccepted.Valid())
	assert.True(t, MatchStatusDismissed.Valid())
	assert.True(t, MatchStatusImported.Valid())
	assert.False(t, MatchStatus("archived").Valid())
	assert.False(t, MatchStatus("").Valid())
}

func TestMatchStatusReviewed(t *testing.T) {
	assert.False(t, MatchStatusSuggested.Reviewed())
	assert.True(t, MatchStatusAccepted.Reviewed())
	assert.True(t, MatchStatusDismissed.Reviewed())
	assert.True(t, MatchStatusImported.Reviewed())
}

func TestMatchStatusTransitions(t *testing.T) {
	// suggested can go anywhere
	assert.True(t, MatchStatusSuggested.CanTransition(MatchStatusAccepted))
	assert.True(t, MatchStatusSuggested.CanTransition(MatchStatusDismissed))
	assert.True(t, MatchStatusSuggested.CanTransition(MatchStatusImported))

	// accepted can only be imported
	assert.True(t, MatchStatusAccepted.CanTransition(MatchStatusImported))
	assert.False(t, MatchStatusAccepted.CanTransition(MatchStatusSuggested))
	assert.False(t, MatchStatusAccepted.CanTransition(MatchStatusDismissed))

	// dismissed and imported are terminal
	assert.False(t, MatchStatusDismissed.CanTransition(MatchStatusAccepted))
	assert.False(t, MatchStatusDismissed.CanTransition(MatchStatusImported))
	assert.False(t, MatchStatusImported.CanTransition(MatchStatusAccepted))
	assert.False(t, MatchStatusImported.CanTransition(MatchStatusDismissed))

	// re-applying the same state is always allowed
	for _, s := range []MatchStatus{MatchStatusSuggested, MatchStatusAccepted, MatchStatusDismissed, MatchStatusImported} {
		assert.True(t, s.CanTransition(s))
	}
}

func TestSeverityBucket(t *testing.T) {
	assert.Equal(t, "Low", SeverityBucket(0))
	assert.Equal(t, "Low", SeverityBucket(3.9))
	assert.Equal(t, "Medium", SeverityBucket(4.0))
	assert.Equal(t, "Medium", SeverityBucket(6.9))
	assert.Equal(t, "High", SeverityBucket(7.0))
	assert.Equal(t, "High", SeverityBucket(8.9))
	assert.Equal(t, "Critical", SeverityBucket(9.0))
	assert.Equal(t, "Critical", SeverityBucket(10.0))
}
