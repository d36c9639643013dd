package listctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/citycast/internal/cities"
)

func named(names ...string) []cities.City {
	out := make([]cities.City, len(names))
	for i, n := range names {
		out[i] = cities.City{Name: n, CountryCode: "XX"}
	}
	return out
}

func names(records []cities.City) []string {
	out := make([]string, len(records))
	for i, c := range records {
		out[i] = c.Name
	}
	return out
}

func TestState_PageSequence(t *testing.T) {
	s := NewState()

	page, err := s.BeginLoad()
	require.NoError(t, err)
	assert.Equal(t, 0, page)
	assert.True(t, s.Loading())

	s.AppendPage(named("A", "B"), false)
	assert.False(t, s.Loading())
	assert.True(t, s.HasMore())
	assert.Equal(t, 1, s.NextPage())

	page, err = s.BeginLoad()
	require.NoError(t, err)
	assert.Equal(t, 1, page)

	s.AppendPage(named("C"), true)
	assert.Equal(t, []string{"A", "B", "C"}, names(s.Records()))
	assert.False(t, s.HasMore())
	assert.Equal(t, 2, s.NextPage())
}

func TestState_MutualExclusion(t *testing.T) {
	s := NewState()

	_, err := s.BeginLoad()
	require.NoError(t, err)

	_, err = s.BeginLoad()
	assert.ErrorIs(t, err, ErrAlreadyLoading)
	assert.True(t, s.Loading(), "rejected request must not end the running load")
}

func TestState_ExhaustionIsPermanent(t *testing.T) {
	s := NewState()

	_, err := s.BeginLoad()
	require.NoError(t, err)
	s.AppendPage(named("A"), true)

	_, err = s.BeginLoad()
	assert.ErrorIs(t, err, ErrExhausted)

	// A stray full page cannot re-open pagination.
	s.AppendPage(named("B", "C"), false)
	assert.False(t, s.HasMore())
	_, err = s.BeginLoad()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestState_FailureKeepsCursor(t *testing.T) {
	s := NewState()

	_, err := s.BeginLoad()
	require.NoError(t, err)
	s.AppendPage(named("A", "B"), false)

	page, err := s.BeginLoad()
	require.NoError(t, err)
	assert.Equal(t, 1, page)

	s.FailLoad()
	assert.False(t, s.Loading())
	assert.Equal(t, 1, s.NextPage())
	assert.Equal(t, []string{"A", "B"}, names(s.Records()))

	page, err = s.BeginLoad()
	require.NoError(t, err)
	assert.Equal(t, 1, page, "retry reuses the failed index")
}

func TestState_MonotonicCursor(t *testing.T) {
	s := NewState()
	prev := s.NextPage()

	for i := 0; i < 10; i++ {
		_, err := s.BeginLoad()
		require.NoError(t, err)
		if i%3 == 2 {
			s.FailLoad()
			assert.Equal(t, prev, s.NextPage())
			continue
		}
		s.AppendPage(named("x"), false)
		assert.Equal(t, prev+1, s.NextPage())
		prev = s.NextPage()
	}
}

func TestState_RecordsIsACopy(t *testing.T) {
	s := NewState()
	_, _ = s.BeginLoad()
	s.AppendPage(named("A"), false)

	got := s.Records()
	got[0].Name = "mutated"
	assert.Equal(t, "A", s.Records()[0].Name)
}
