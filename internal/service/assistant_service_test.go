package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Complete(ctx context.Context, system, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func assistantJobs() *mockJobRepo {
	return newMockJobRepo(
		&models.Job{ID: "j1", Title: "Nurse", Category: models.CategoryHealth, IsActive: true},
		&models.Job{ID: "j2", Title: "Teacher", Category: models.CategoryEducation, IsActive: true},
		&models.Job{ID: "j3", Title: "Developer", Category: models.CategoryTechnology, IsActive: true},
	)
}

func TestAssistantRefineReturnsGeneratedText(t *testing.T) {
	gen := &stubGenerator{reply: "  A clearer description.  "}
	svc := NewAssistantService(gen, assistantJobs(), dto.NewValidator(), nil)

	out, err := svc.RefineJobDescription(context.Background(), dto.RefineJobRequest{Title: "Nurse", Description: "need nurse"})
	require.NoError(t, err)
	assert.True(t, out.Refined)
	assert.Equal(t, "A clearer description.", out.Description)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "need nurse")
}

func TestAssistantRefineFallsBackToOriginal(t *testing.T) {
	cases := map[string]TextGenerator{
		"error":    &stubGenerator{err: errors.New("timeout")},
		"empty":    &stubGenerator{reply: "   "},
		"disabled": nil,
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewAssistantService(gen, assistantJobs(), dto.NewValidator(), nil)
			out, err := svc.RefineJobDescription(context.Background(), dto.RefineJobRequest{Title: "Nurse", Description: "need nurse"})
			require.NoError(t, err)
			assert.False(t, out.Refined)
			assert.Equal(t, "need nurse", out.Description)
		})
	}
}

func TestAssistantRefineValidates(t *testing.T) {
	svc := NewAssistantService(&stubGenerator{reply: "x"}, assistantJobs(), dto.NewValidator(), nil)
	_, err := svc.RefineJobDescription(context.Background(), dto.RefineJobRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssistantMatchRanksKnownJobs(t *testing.T) {
	gen := &stubGenerator{reply: "Here you go:\n```json\n[" +
		`{"jobId":"j2","matchScore":40,"reason":"some teaching"},` +
		`{"jobId":"j1","matchScore":140,"reason":" clinical work "},` +
		`{"jobId":"ghost","matchScore":99,"reason":"unknown"},` +
		"]\n```"}
	svc := NewAssistantService(gen, assistantJobs(), dto.NewValidator(), nil)

	out, err := svc.MatchJobs(context.Background(), dto.MatchJobsRequest{
		Bio:    "Registered nurse with ten years in rural clinics.",
		JobIDs: []string{"j1", "j2", "j3"},
	})
	require.NoError(t, err)
	assert.True(t, out.Ranked)
	require.Len(t, out.Matches, 2)
	assert.Equal(t, "j1", out.Matches[0].JobID)
	assert.Equal(t, "Nurse", out.Matches[0].Title)
	assert.Equal(t, 100.0, out.Matches[0].MatchScore)
	assert.Equal(t, "clinical work", out.Matches[0].Reason)
	assert.Equal(t, "j2", out.Matches[1].JobID)
	assert.Contains(t, gen.prompts[0], "id=j3")
}

func TestAssistantMatchFallsBackToCandidateOrder(t *testing.T) {
	cases := map[string]*stubGenerator{
		"error":     {err: errors.New("upstream 500")},
		"prose":     {reply: "I cannot help with that."},
		"no known":  {reply: `[{"jobId":"ghost","matchScore":50}]`},
		"malformed": {reply: `[{"jobId": }]`},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewAssistantService(gen, assistantJobs(), dto.NewValidator(), nil)
			out, err := svc.MatchJobs(context.Background(), dto.MatchJobsRequest{
				Bio:    "Registered nurse with ten years in rural clinics.",
				JobIDs: []string{"j3", "j1", "missing", "j3"},
			})
			require.NoError(t, err)
			assert.False(t, out.Ranked)
			require.Len(t, out.Matches, 2)
			assert.Equal(t, "j3", out.Matches[0].JobID)
			assert.Equal(t, "j1", out.Matches[1].JobID)
			assert.Zero(t, out.Matches[0].MatchScore)
		})
	}
}

func TestAssistantMatchDefaultsToRecentOpenJobs(t *testing.T) {
	repo := assistantJobs()
	svc := NewAssistantService(nil, repo, dto.NewValidator(), nil)

	out, err := svc.MatchJobs(context.Background(), dto.MatchJobsRequest{Bio: "Any work in Port-au-Prince please."})
	require.NoError(t, err)
	assert.Len(t, out.Matches, 3)
	assert.True(t, repo.lastFilter.PublicOnly)
	assert.Equal(t, matchCandidateLimit, repo.lastFilter.Limit)
	assert.Equal(t, models.SortDesc, repo.lastFilter.SortOrder)
}

func TestAssistantMatchWithNoCandidates(t *testing.T) {
	svc := NewAssistantService(&stubGenerator{reply: "[]"}, newMockJobRepo(), dto.NewValidator(), nil)
	out, err := svc.MatchJobs(context.Background(), dto.MatchJobsRequest{Bio: "Looking for anything at all."})
	require.NoError(t, err)
	assert.Empty(t, out.Matches)
}
