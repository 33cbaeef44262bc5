package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/civic-connect/civic-api/internal/dto"
	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
	"github.com/civic-connect/civic-api/pkg/llm"
)

const matchCandidateLimit = 20

const refineSystemPrompt = "You edit job postings for a civic job board. Rewrite the description to be clear, " +
	"well structured and professional. Keep every fact, do not invent requirements, and answer with the description only."

const matchSystemPrompt = "You match a job seeker to open job postings. Answer with a JSON array only, one object per job: " +
	`{"jobId": string, "matchScore": number from 0 to 100, "reason": short string}.`

// TextGenerator produces a single completion for a system and user prompt.
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type assistantJobSource interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error)
}

// AssistantService wraps the text generator. Any generator failure degrades
// to the caller's original input.
type AssistantService struct {
	gen       TextGenerator
	jobs      assistantJobSource
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssistantService builds an AssistantService. gen may be nil when the
// assistant is disabled.
func NewAssistantService(gen TextGenerator, jobs assistantJobSource, validate *validator.Validate, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssistantService{gen: gen, jobs: jobs, validator: validate, logger: logger}
}

// RefineJobDescription asks the generator to polish a description.
func (s *AssistantService) RefineJobDescription(ctx context.Context, req dto.RefineJobRequest) (*dto.RefineJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assistant request")
	}
	passthrough := &dto.RefineJobResponse{Description: req.Description}
	if s.gen == nil {
		return passthrough, nil
	}

	prompt := fmt.Sprintf("Title: %s\n\nDescription:\n%s", req.Title, req.Description)
	out, err := s.gen.Complete(ctx, refineSystemPrompt, prompt)
	if err != nil {
		s.logger.Warn("assistant refine failed", zap.Error(err))
		return passthrough, nil
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return passthrough, nil
	}
	return &dto.RefineJobResponse{Description: out, Refined: true}, nil
}

// MatchJobs scores open jobs against a biography, best first.
func (s *AssistantService) MatchJobs(ctx context.Context, req dto.MatchJobsRequest) (*dto.MatchJobsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assistant request")
	}
	candidates, err := s.candidates(ctx, req.JobIDs)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &dto.MatchJobsResponse{Matches: []dto.JobMatch{}}, nil
	}
	if s.gen == nil {
		return unranked(candidates), nil
	}

	out, err := s.gen.Complete(ctx, matchSystemPrompt, matchPrompt(req.Bio, candidates))
	if err != nil {
		s.logger.Warn("assistant match failed", zap.Error(err))
		return unranked(candidates), nil
	}
	matches, ok := parseMatches(out, candidates)
	if !ok {
		s.logger.Warn("assistant match reply unusable", zap.Int("length", len(out)))
		return unranked(candidates), nil
	}
	return &dto.MatchJobsResponse{Matches: matches, Ranked: true}, nil
}

func (s *AssistantService) candidates(ctx context.Context, ids []string) ([]models.Job, error) {
	if len(ids) == 0 {
		filter := models.JobFilter{PublicOnly: true}
		filter.ListParams = models.ListParams{Page: 1, Limit: matchCandidateLimit, SortBy: "createdAt"}.Normalize(matchCandidateLimit, matchCandidateLimit)
		jobs, _, err := s.jobs.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load jobs")
		}
		return jobs, nil
	}

	jobs := make([]models.Job, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		job, err := s.jobs.FindByID(ctx, id)
		if err != nil {
			// unknown ids are skipped rather than failing the whole request
			s.logger.Debug("match candidate skipped", zap.String("job_id", id), zap.Error(err))
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func matchPrompt(bio string, jobs []models.Job) string {
	var b strings.Builder
	b.WriteString("Candidate biography:\n")
	b.WriteString(bio)
	b.WriteString("\n\nJobs:\n")
	for _, j := range jobs {
		fmt.Fprintf(&b, "- id=%s | %s | %s | %s | skills: %s\n",
			j.ID, j.Title, j.Category, j.Location, strings.Join(j.Skills, ", "))
	}
	return b.String()
}

type rawMatch struct {
	JobID      string  `json:"jobId"`
	MatchScore float64 `json:"matchScore"`
	Reason     string  `json:"reason"`
}

// parseMatches keeps only replies naming known candidates. Scores are clamped to 0..100.
func parseMatches(reply string, jobs []models.Job) ([]dto.JobMatch, bool) {
	raw := llm.ExtractJSONArray(reply)
	if raw == "" {
		return nil, false
	}
	var parsed []rawMatch
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}

	titles := make(map[string]string, len(jobs))
	for _, j := range jobs {
		titles[j.ID] = j.Title
	}
	matches := make([]dto.JobMatch, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))
	for _, m := range parsed {
		title, known := titles[m.JobID]
		if !known {
			continue
		}
		if _, dup := seen[m.JobID]; dup {
			continue
		}
		seen[m.JobID] = struct{}{}
		matches = append(matches, dto.JobMatch{
			JobID:      m.JobID,
			Title:      title,
			MatchScore: clampScore(m.MatchScore),
			Reason:     strings.TrimSpace(m.Reason),
		})
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.SliceStable(matches, func(i, k int) bool { return matches[i].MatchScore > matches[k].MatchScore })
	return matches, true
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func unranked(jobs []models.Job) *dto.MatchJobsResponse {
	matches := make([]dto.JobMatch, 0, len(jobs))
	for _, j := range jobs {
		matches = append(matches, dto.JobMatch{JobID: j.ID, Title: j.Title})
	}
	return &dto.MatchJobsResponse{Matches: matches}
}
