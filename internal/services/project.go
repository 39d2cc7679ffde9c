package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/bluecarbon/registry/internal/events"
	"github.com/bluecarbon/registry/internal/metrics"
	"github.com/bluecarbon/registry/internal/models"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/bluecarbon/registry/internal/uploads"
	"github.com/bluecarbon/registry/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxListLimit caps the recent-submissions listing
const MaxListLimit = 500

// ErrInvalidType is returned for a submission type other than local or org
var ErrInvalidType = errors.New("invalid project type")

// SubmitResult identifies a stored submission
type SubmitResult struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
}

// ProjectService validates, stores and reads project submissions
type ProjectService struct {
	repo      storage.Repository
	validator *validation.Validator
	store     *uploads.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewProjectService creates a new project service. publisher and m may be nil.
func NewProjectService(repo storage.Repository, v *validation.Validator, store *uploads.Store, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *ProjectService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ProjectService{
		repo:      repo,
		validator: v,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for created_at
func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	return s
}

// Submit validates a multipart submission, writes its files and inserts the
// submission with its file records. A validation failure is returned as
// *validation.Errors and leaves nothing behind.
func (s *ProjectService) Submit(ctx context.Context, projectType string, form *multipart.Form, submittedBy uuid.NullUUID) (*SubmitResult, error) {
	if projectType != models.TypeLocal && projectType != models.TypeOrg {
		return nil, ErrInvalidType
	}
	if form == nil {
		form = &multipart.Form{}
	}

	// Validate before anything touches disk
	in, err := inputFromForm(form)
	if err != nil {
		return nil, err
	}
	if errs, _ := s.validator.Validate(projectType, in); !errs.OK() {
		s.metrics.ObserveSubmission(projectType, metrics.ResultRejected)
		return nil, errs
	}

	// A session can outlive its account
	submittedBy, err = s.resolveSubmitter(ctx, submittedBy)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	now := s.now().UTC().Truncate(time.Microsecond)

	saved, records, err := s.saveFiles(form, in, id, projectType, now)
	if err != nil {
		s.fail(projectType, saved, err)
		return nil, fmt.Errorf("failed to store uploads: %w", err)
	}

	// Insert the row and its file records together
	var ev events.SubmissionEvent
	switch projectType {
	case models.TypeLocal:
		sub := buildLocal(in, id, submittedBy, now)
		err = s.repo.CreateLocalSubmission(ctx, sub, records)
		ev = events.SubmissionEvent{Title: sub.Title, Country: sub.Country, Ecosystem: sub.Ecosystem, AreaHa: sub.AreaHa}
	case models.TypeOrg:
		var sub *models.OrgSubmission
		sub, err = buildOrg(in, id, submittedBy, now)
		if err == nil {
			err = s.repo.CreateOrgSubmission(ctx, sub, records)
			ev = events.SubmissionEvent{Title: sub.Title, Country: sub.Country, Ecosystem: sub.Ecosystem, AreaHa: sub.AreaHa}
		}
	}
	if err != nil {
		s.fail(projectType, saved, err)
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	// Publish after commit
	s.metrics.ObserveSubmission(projectType, metrics.ResultAccepted)
	ev.ID = id
	ev.Type = projectType
	ev.CreatedAt = now
	ev.FileCounts = make(map[string]int)
	for _, r := range records {
		s.metrics.ObserveFile(r.Kind, r.SizeBytes)
		ev.FileCounts[r.Kind]++
	}
	if submittedBy.Valid {
		ev.SubmittedBy = &submittedBy.UUID
	}
	if err := s.publisher.PublishSubmitted(ctx, ev); err != nil {
		s.logger.Warn("failed to publish submission event", zap.String("id", id.String()), zap.Error(err))
	}

	s.logger.Info("project submitted",
		zap.String("id", id.String()),
		zap.String("type", projectType),
		zap.Int("files", len(records)),
	)
	return &SubmitResult{ID: id, Type: projectType}, nil
}

// resolveSubmitter drops a submitter whose account no longer exists so the
// submission is stored anonymously
func (s *ProjectService) resolveSubmitter(ctx context.Context, submittedBy uuid.NullUUID) (uuid.NullUUID, error) {
	if !submittedBy.Valid {
		return submittedBy, nil
	}
	if _, err := s.repo.GetUserByID(ctx, submittedBy.UUID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("session user not found, submitting anonymously", zap.String("user_id", submittedBy.UUID.String()))
			return uuid.NullUUID{}, nil
		}
		return submittedBy, fmt.Errorf("failed to look up submitter: %w", err)
	}
	return submittedBy, nil
}

func (s *ProjectService) fail(projectType string, saved []*uploads.Saved, err error) {
	s.metrics.ObserveSubmission(projectType, metrics.ResultFailed)
	s.logger.Error("failed to save project", zap.String("type", projectType), zap.Error(err))
	if rmErr := s.store.Remove(saved...); rmErr != nil {
		s.logger.Error("failed to remove uploaded files", zap.Error(rmErr))
	}
}

// saveFiles writes every accepted upload with the MIME type it was validated
// under and returns the matching records. Files written before a failure are
// returned so the caller can remove them.
func (s *ProjectService) saveFiles(form *multipart.Form, in validation.Input, id uuid.UUID, projectType string, now time.Time) ([]*uploads.Saved, []models.FileRecord, error) {
	var saved []*uploads.Saved
	var records []models.FileRecord

	for _, kind := range validation.AcceptedFileKinds(projectType) {
		for i, fh := range form.File[kind] {
			var mime string
			if i < len(in.Files[kind]) {
				mime = in.Files[kind][i].MIME
			}
			f, err := fh.Open()
			if err != nil {
				return saved, nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
			}
			sv, err := s.store.Save(fh.Filename, mime, f)
			f.Close()
			if err != nil {
				return saved, nil, err
			}
			saved = append(saved, sv)
			records = append(records, models.FileRecord{
				ID:             uuid.New(),
				SubmissionID:   id,
				SubmissionType: projectType,
				Kind:           kind,
				OriginalName:   fh.Filename,
				URL:            sv.URL,
				SizeBytes:      sv.Size,
				MimeType:       sv.MIME,
				CreatedAt:      now,
			})
		}
	}
	return saved, records, nil
}

// inputFromForm converts a parsed multipart form into validation input,
// sniffing each file's MIME type from its content. Every file field is
// carried over so validation can reject the ones a form does not accept.
func inputFromForm(form *multipart.Form) (validation.Input, error) {
	in := validation.Input{
		Values: form.Value,
		Files:  make(map[string][]validation.FileInfo),
	}
	if in.Values == nil {
		in.Values = map[string][]string{}
	}

	for kind, headers := range form.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return in, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
			}
			mime, err := uploads.Sniff(f)
			f.Close()
			if err != nil {
				return in, err
			}
			in.Files[kind] = append(in.Files[kind], validation.FileInfo{
				Name: fh.Filename,
				Size: fh.Size,
				MIME: mime,
			})
		}
	}
	return in, nil
}

// ListRecent returns up to limit of the newest submissions. A limit outside
// 1..MaxListLimit means MaxListLimit.
func (s *ProjectService) ListRecent(ctx context.Context, limit int) ([]models.ProjectSummary, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	projects, err := s.repo.ListRecentProjects(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Get returns one submission with its files, or storage.ErrNotFound
func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.ProjectDetail, error) {
	detail, err := s.repo.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return detail, nil
}
