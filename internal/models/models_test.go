package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListParamsNormalize(t *testing.T) {
	p := ListParams{Page: 0, Limit: 0, SortOrder: "ASC"}.Normalize(10, 100)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, SortAsc, p.SortOrder)

	p = ListParams{Page: 3, Limit: 500, SortOrder: "sideways"}.Normalize(10, 100)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, SortDesc, p.SortOrder)
	assert.Equal(t, 200, p.Offset())
}

func TestListParamsHugePageKeepsOffsetPositive(t *testing.T) {
	p := ListParams{Page: math.MaxInt64 / 5}.Normalize(10, 100)
	assert.Positive(t, p.Offset())
	assert.LessOrEqual(t, p.Offset(), math.MaxInt32)

	p = ListParams{Page: math.MaxInt64, Limit: 1}.Normalize(10, 100)
	assert.Equal(t, math.MaxInt32, p.Offset())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.CurrentPage)

	assert.Zero(t, NewPagination(0, 1, 10).TotalPages)
	assert.Zero(t, NewPagination(5, 1, 0).TotalPages)
}

func TestRunningAverageUsesPriorCount(t *testing.T) {
	s := RunningAverage(RatingSummary{}, 4)
	assert.Equal(t, RatingSummary{Average: 4, Count: 1}, s)

	s = RunningAverage(s, 5)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 4.5, s.Average, 1e-9)

	s = RunningAverage(s, 1)
	assert.InDelta(t, 10.0/3.0, s.Average, 1e-9)
}

func TestAverageOfRoundsToOneDecimal(t *testing.T) {
	assert.Equal(t, RatingSummary{}, AverageOf(nil))
	assert.Equal(t, RatingSummary{Average: 4.3, Count: 3}, AverageOf([]int{4, 4, 5}))
	assert.Equal(t, 2.5, RoundRating(2.45))
}

func TestNewReviewStatsFillsDistribution(t *testing.T) {
	stats := NewReviewStats(map[int]int{5: 2, 3: 1, 9: 4})
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 4.3, stats.Average)
	assert.Equal(t, RatingDistribution{1: 0, 2: 0, 3: 1, 4: 0, 5: 2}, stats.Distribution)

	empty := NewReviewStats(nil)
	assert.Zero(t, empty.Average)
	assert.Len(t, empty.Distribution, 5)
}

func TestReviewJSONNestsResponse(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	text := "Thanks!"
	raw, err := json.Marshal(Review{ID: "r1", Rating: 5, ResponseText: &text, RespondedAt: &at})
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	resp, ok := body["response"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Thanks!", resp["text"])
	assert.NotContains(t, body, "responseText")

	raw, err = json.Marshal(Review{ID: "r2"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"response"`)
}

func TestUserGates(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.CanWrite())
	assert.False(t, nobody.IsAdmin())

	assert.True(t, (&User{Role: RoleAdmin, Status: StatusPending}).CanWrite())
	assert.True(t, (&User{Role: RoleUser, Status: StatusApproved}).CanWrite())
	assert.False(t, (&User{Role: RoleInstitution, Status: StatusRejected}).CanWrite())
	assert.False(t, UserRole("OWNER").Valid())
}

func TestDisplayNamePrefersInstitutionName(t *testing.T) {
	empty := ""
	org := "Croix-Rouge"
	assert.Equal(t, "Marie", (&User{Name: "Marie"}).DisplayName())
	assert.Equal(t, "Marie", (&User{Name: "Marie", InstitutionName: &empty}).DisplayName())
	assert.Equal(t, org, (&User{Name: "Marie", InstitutionName: &org}).DisplayName())
}

func TestJobIsExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, (&Job{Deadline: now.Add(-time.Minute)}).IsExpired(now))
	assert.False(t, (&Job{Deadline: now.Add(time.Hour)}).IsExpired(now))
}

func TestDocumentsScan(t *testing.T) {
	var docs Documents
	require.NoError(t, docs.Scan([]byte(`[{"filename":"cv.pdf","url":"https://x.test/cv.pdf"}]`)))
	require.Len(t, docs, 1)
	assert.Equal(t, "cv.pdf", docs[0].Filename)

	require.NoError(t, docs.Scan(nil))
	assert.Empty(t, docs)
	assert.Error(t, docs.Scan(42))

	v, err := Documents(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}
