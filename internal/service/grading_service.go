package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
)

type submissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	ListByGroup(ctx context.Context, groupID string) ([]models.Submission, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
}

type contributionRepository interface {
	Upsert(ctx context.Context, contribution *models.Contribution) error
	ListByGroup(ctx context.Context, groupID string) ([]models.Contribution, error)
}

type scoreRepository interface {
	GetOrCreate(ctx context.Context, groupID string) (*models.Score, error)
	Update(ctx context.Context, groupID string, teamBaseScore float64, professorNotes string) error
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindDetailByID(ctx context.Context, id string) (*models.GroupDetail, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

type uploadStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (io.ReadCloser, int64, error)
}

// defaultMaxUploadBytes caps uploads when configuration gives no limit.
const defaultMaxUploadBytes = 20 << 20

// UploadSubmissionRequest carries one deliverable upload.
type UploadSubmissionRequest struct {
	Type     models.SubmissionType
	Filename string
	Size     int64
	File     io.Reader
}

// SubmissionDownload bundles a stored file with its metadata. Content must be
// closed by the caller.
type SubmissionDownload struct {
	Submission *models.Submission
	Content    io.ReadCloser
	Size       int64
}

// DeclareContributionRequest is a student's own contribution declaration.
// Percentages are not validated to sum to 100 across the group.
type DeclareContributionRequest struct {
	Description string  `json:"description" validate:"required"`
	Percentage  float64 `json:"percentage" validate:"gte=0,lte=100"`
}

// UpdateScoreRequest rewrites the professor's grade record for a group.
type UpdateScoreRequest struct {
	TeamBaseScore  float64 `json:"team_base_score" validate:"gte=0,lte=100"`
	ProfessorNotes string  `json:"professor_notes"`
}

// GradingView aggregates everything the professor sees when grading a group.
type GradingView struct {
	Group         *models.GroupDetail   `json:"group"`
	Score         *models.Score         `json:"score"`
	Submissions   []models.Submission   `json:"submissions"`
	Contributions []models.Contribution `json:"contributions"`
}

// GradingService covers submissions, contribution declarations and scoring.
type GradingService struct {
	groups         groupReader
	submissions    submissionRepository
	contributions  contributionRepository
	scores         scoreRepository
	storage        uploadStore
	maxUploadBytes int64
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewGradingService constructs GradingService.
func NewGradingService(groups groupReader, submissions submissionRepository, contributions contributionRepository, scores scoreRepository, storage uploadStore, maxUploadBytes int64, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{
		groups:         groups,
		submissions:    submissions,
		contributions:  contributions,
		scores:         scores,
		storage:        storage,
		maxUploadBytes: maxUploadBytes,
		validator:      validate,
		logger:         logger,
	}
}

// UploadSubmission stores a new file version for the group. Only members may
// upload; previous versions are retained.
func (s *GradingService) UploadSubmission(ctx context.Context, actorID, groupID string, req UploadSubmissionRequest) (*models.Submission, error) {
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown submission type")
	}
	if req.File == nil || req.Filename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a file is required")
	}
	if req.Size > s.maxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the maximum upload size of %d bytes", s.maxUploadBytes))
	}
	if err := s.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}

	stored := fmt.Sprintf("submissions/%s/%s_%s", groupID, uuid.NewString(), filepath.Base(req.Filename))
	path, err := s.storage.SaveStream(stored, req.File)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store uploaded file")
	}

	submission := &models.Submission{
		GroupID:          groupID,
		Type:             req.Type,
		FilePath:         path,
		OriginalFilename: filepath.Base(req.Filename),
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}

	s.logger.Info("submission uploaded",
		zap.String("group_id", groupID),
		zap.String("type", string(req.Type)),
		zap.Int("version", submission.Version))

	return submission, nil
}

// ListSubmissions returns a group's submissions for members and professors.
func (s *GradingService) ListSubmissions(ctx context.Context, viewer *models.User, groupID string) ([]models.Submission, error) {
	if viewer.Role != models.RoleProfessor {
		if err := s.requireMember(ctx, groupID, viewer.ID); err != nil {
			return nil, err
		}
	}
	submissions, err := s.submissions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// DownloadSubmission opens a stored deliverable for members of its group and
// for professors.
func (s *GradingService) DownloadSubmission(ctx context.Context, viewer *models.User, submissionID string) (*SubmissionDownload, error) {
	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if viewer.Role != models.RoleProfessor {
		if err := s.requireMember(ctx, submission.GroupID, viewer.ID); err != nil {
			return nil, err
		}
	}
	content, size, err := s.storage.Open(submission.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	return &SubmissionDownload{Submission: submission, Content: content, Size: size}, nil
}

// DeclareContribution upserts the caller's own contribution record for the
// group.
func (s *GradingService) DeclareContribution(ctx context.Context, actorID, groupID string, req DeclareContributionRequest) (*models.Contribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contribution payload")
	}
	if err := s.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	contribution := &models.Contribution{
		GroupID:     groupID,
		StudentID:   actorID,
		Description: req.Description,
		Percentage:  req.Percentage,
	}
	if err := s.contributions.Upsert(ctx, contribution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save contribution")
	}
	return contribution, nil
}

// Grading returns the grading view for a group, lazily creating the score row
// on first access.
func (s *GradingService) Grading(ctx context.Context, groupID string) (*GradingView, error) {
	detail, err := s.groups.FindDetailByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	score, err := s.scores.GetOrCreate(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score")
	}
	submissions, err := s.submissions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	contributions, err := s.contributions.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contributions")
	}
	return &GradingView{
		Group:         detail,
		Score:         score,
		Submissions:   submissions,
		Contributions: contributions,
	}, nil
}

// UpdateScore writes the team base score and notes for the group.
func (s *GradingService) UpdateScore(ctx context.Context, groupID string, req UpdateScoreRequest) (*models.Score, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	score, err := s.scores.GetOrCreate(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load score")
	}
	if err := s.scores.Update(ctx, groupID, req.TeamBaseScore, req.ProfessorNotes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update score")
	}
	score.TeamBaseScore = req.TeamBaseScore
	score.ProfessorNotes = req.ProfessorNotes
	return score, nil
}

func (s *GradingService) requireMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return appErrors.Clone(appErrors.ErrForbidden, "not a member of this group")
	}
	return nil
}
