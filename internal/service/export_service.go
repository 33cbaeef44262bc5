package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civic-connect/civic-api/internal/models"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
	"github.com/civic-connect/civic-api/pkg/export"
	"github.com/civic-connect/civic-api/pkg/i18n"
)

type exportApplicationSource interface {
	ListByJob(ctx context.Context, jobID string) ([]models.Application, error)
}

type exportJobLookup interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a job's applicants as CSV or PDF.
type ExportService struct {
	apps   exportApplicationSource
	jobs   exportJobLookup
	csv    datasetRenderer
	pdf    datasetRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(apps exportApplicationSource, jobs exportJobLookup, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{apps: apps, jobs: jobs, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// Applicants renders every application a job received. Only the job owner or an admin may export.
func (s *ExportService) Applicants(ctx context.Context, actor *models.User, jobID string, format export.Format, lang models.Language) (*ExportFile, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, appErrors.ErrJobNotFound, "failed to load job")
	}
	if err := ownerOrAdmin(actor, job.InstitutionID); err != nil {
		return nil, err
	}

	apps, err := s.apps.ListByJob(ctx, jobID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load applications")
	}

	data := applicantDataset(job, apps, lang)
	renderer := s.csv
	if format == export.FormatPDF {
		renderer = s.pdf
	}
	out, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}

	s.logger.Info("applicants exported",
		zap.String("job_id", jobID),
		zap.String("format", string(format)),
		zap.Int("rows", len(apps)),
	)

	return &ExportFile{
		Filename:    fmt.Sprintf("%s-applicants-%s.%s", sanitizeFilename(job.Title), s.now().UTC().Format("20060102"), format),
		ContentType: format.ContentType(),
		Data:        out,
	}, nil
}

func applicantDataset(job *models.Job, apps []models.Application, lang models.Language) export.Dataset {
	headers := []string{"Name", "Email", "Status", "Applied", "Interview", "Rating", "Documents"}
	rows := make([]map[string]string, 0, len(apps))
	for _, a := range apps {
		row := map[string]string{
			"Name":      a.UserName,
			"Email":     a.UserEmail,
			"Status":    i18n.ApplicationStatus(lang, a.Status),
			"Applied":   a.AppliedAt.UTC().Format("2006-01-02"),
			"Documents": fmt.Sprintf("%d", len(a.Documents)),
		}
		if a.InterviewDate != nil {
			row["Interview"] = a.InterviewDate.UTC().Format("2006-01-02 15:04")
		}
		if a.Rating != nil {
			row["Rating"] = fmt.Sprintf("%d", *a.Rating)
		}
		rows = append(rows, row)
	}
	return export.Dataset{
		Title:   fmt.Sprintf("%s (%s)", job.Title, job.InstitutionName),
		Headers: headers,
		Rows:    rows,
	}
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

func sanitizeFilename(raw string) string {
	name := unsafeFilename.ReplaceAllString(strings.ToLower(raw), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "job"
	}
	if len(name) > 60 {
		name = strings.TrimRight(name[:60], "-")
	}
	return name
}
