package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
)

type groupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindDetailByID(ctx context.Context, id string) (*models.GroupDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.GroupDetail, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]models.MembershipDetail, error)
	FindMembershipByID(ctx context.Context, id string) (*models.Membership, error)
	HasMembershipInCourse(ctx context.Context, userID, courseID string) (bool, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	ConfirmMembership(ctx context.Context, id string) error
	CreateWithMembers(ctx context.Context, group *models.Group, memberIDs []string) error
	UpdateWithMembers(ctx context.Context, group *models.Group, memberIDs []string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
}

// CreateGroupRequest carries the fields a leader submits when forming a group.
type CreateGroupRequest struct {
	Name               string   `json:"name" validate:"required,max=100"`
	ProjectName        string   `json:"project_name" validate:"required,max=200"`
	ProjectDescription string   `json:"project_description"`
	MemberIDs          []string `json:"member_ids" validate:"required,min=1"`
}

// UpdateGroupRequest replaces the group fields and the full non-leader
// membership set.
type UpdateGroupRequest struct {
	Name               string   `json:"name" validate:"required,max=100"`
	ProjectName        string   `json:"project_name" validate:"required,max=200"`
	ProjectDescription string   `json:"project_description"`
	MemberIDs          []string `json:"member_ids" validate:"required"`
}

// GroupService orchestrates the group-membership lifecycle.
type GroupService struct {
	repo      groupRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(repo groupRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// Create forms a new group led by the requesting student. The group row, the
// leader's confirmed membership and the invited members' unconfirmed
// memberships commit together or not at all.
func (s *GroupService) Create(ctx context.Context, leaderID, courseID string, req CreateGroupRequest) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	taken, err := s.repo.HasMembershipInCourse(ctx, leaderID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you already belong to a group in this course")
	}

	memberIDs, err := s.vetCandidates(ctx, courseID, leaderID, "", req.MemberIDs)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		CourseID:           courseID,
		LeaderID:           leaderID,
		Name:               req.Name,
		ProjectName:        req.ProjectName,
		ProjectDescription: req.ProjectDescription,
	}
	if err := s.repo.CreateWithMembers(ctx, group, memberIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}

	s.logger.Info("group created",
		zap.String("group_id", group.ID),
		zap.String("course_id", courseID),
		zap.String("leader_id", leaderID),
		zap.Int("members", len(memberIDs)))

	return s.detail(ctx, group.ID)
}

// Update lets the leader rewrite the group fields and replace the non-leader
// membership set wholesale. The leader's confirmed membership is re-asserted
// regardless of the prior membership state.
func (s *GroupService) Update(ctx context.Context, actorID, groupID string, req UpdateGroupRequest) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group.LeaderID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the group leader may edit the group")
	}

	memberIDs, err := s.vetCandidates(ctx, group.CourseID, group.LeaderID, group.ID, req.MemberIDs)
	if err != nil {
		return nil, err
	}

	group.Name = req.Name
	group.ProjectName = req.ProjectName
	group.ProjectDescription = req.ProjectDescription
	if err := s.repo.UpdateWithMembers(ctx, group, memberIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}

	return s.detail(ctx, group.ID)
}

// Confirm transitions the caller's own membership from unconfirmed to
// confirmed. Confirming an already-confirmed membership is a no-op; there is
// no reverse transition and no decline path.
func (s *GroupService) Confirm(ctx context.Context, actorID, membershipID string) (*models.Membership, error) {
	membership, err := s.repo.FindMembershipByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "membership not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	if membership.UserID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the invited member may confirm this membership")
	}
	if membership.IsConfirmed {
		return membership, nil
	}
	if err := s.repo.ConfirmMembership(ctx, membershipID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm membership")
	}
	membership.IsConfirmed = true
	return membership, nil
}

// Detail returns a group with its members for a viewer that is either a
// professor or a member of the group.
func (s *GroupService) Detail(ctx context.Context, viewer *models.User, groupID string) (*models.GroupDetail, error) {
	if viewer.Role != models.RoleProfessor {
		member, err := s.repo.IsMember(ctx, groupID, viewer.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
		}
		if !member {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not a member of this group")
		}
	}
	return s.detail(ctx, groupID)
}

// MembershipsForUser returns the dashboard view of a user's memberships.
func (s *GroupService) MembershipsForUser(ctx context.Context, userID string) ([]models.MembershipDetail, error) {
	memberships, err := s.repo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	return memberships, nil
}

// vetCandidates validates the selected members: deduplicated, never the
// leader, enrolled in the course, and not already in another group of the
// course. Members of the edited group itself stay eligible.
func (s *GroupService) vetCandidates(ctx context.Context, courseID, leaderID, editingGroupID string, candidateIDs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(candidateIDs))
	members := make([]string, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if id == leaderID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		enrolled, err := s.courses.IsEnrolled(ctx, courseID, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selected member is not enrolled in this course")
		}

		if editingGroupID != "" {
			inThisGroup, err := s.repo.IsMember(ctx, editingGroupID, id)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
			}
			if inThisGroup {
				members = append(members, id)
				continue
			}
		}

		taken, err := s.repo.HasMembershipInCourse(ctx, id, courseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrConflict, "selected member already belongs to a group in this course")
		}
		members = append(members, id)
	}
	return members, nil
}

func (s *GroupService) detail(ctx context.Context, groupID string) (*models.GroupDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group detail")
	}
	return detail, nil
}
