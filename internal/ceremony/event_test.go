package ceremony

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_CoversUnion(t *testing.T) {
	events := []Event{
		ValidationLoaded{},
		FlipFetchStarted{},
		FlipsFetched{},
		MissingFlipsFetched{},
		FlipFetchFailed{},
		PrevFlip{},
		NextFlip{},
		PickFlip{},
		FlipAnswered{},
		FlipReported{},
		ShortAnswersSubmitted{},
		LongAnswersSubmitted{},
		EpochReset{},
	}

	seen := make(map[string]bool)
	for _, ev := range events {
		kind := Kind(ev)
		assert.NotEqual(t, "unknown", kind, "%T must have a kind", ev)
		assert.False(t, seen[kind], "kind %q reused", kind)
		seen[kind] = true
	}
}

func TestKind_Unknown(t *testing.T) {
	assert.Equal(t, "unknown", Kind(bogusEvent{}))
}

func TestPeriod_String(t *testing.T) {
	assert.Equal(t, "none", PeriodNone.String())
	assert.Equal(t, "flip_lottery", PeriodFlipLottery.String())
	assert.Equal(t, "short_session", PeriodShortSession.String())
	assert.Equal(t, "long_session", PeriodLongSession.String())
	assert.Equal(t, "after_long_session", PeriodAfterLongSession.String())
	assert.Equal(t, "period(9)", Period(9).String())
}

func TestSessionKind_String(t *testing.T) {
	assert.Equal(t, "short", ShortSession.String())
	assert.Equal(t, "long", LongSession.String())
}
