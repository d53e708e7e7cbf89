package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"studyquest-backend/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type GroupService struct {
	DB *gorm.DB
	XP *XPService
}

func NewGroupService(db *gorm.DB, xp *XPService) *GroupService {
	return &GroupService{DB: db, XP: xp}
}

// CreateGroup creates a study group owned by ownerID and joins them to it
func (s *GroupService) CreateGroup(ownerID, name string) (*models.StudyGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidState)
	}

	groupSlug := slug.Make(name)
	// Disambiguate slug collisions with a short random suffix
	var count int64
	if err := s.DB.Model(&models.StudyGroup{}).Where("slug = ?", groupSlug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		groupSlug = fmt.Sprintf("%s-%s", groupSlug, uuid.NewString()[:6])
	}

	group := models.StudyGroup{
		ID:         uuid.NewString(),
		Name:       name,
		Slug:       groupSlug,
		OwnerID:    ownerID,
		InviteCode: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		member := models.GroupMember{
			ID:             uuid.NewString(),
			GroupID:        group.ID,
			ExternalUserID: ownerID,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// JoinByInviteCode adds a user to the group behind an invite code (idempotent)
func (s *GroupService) JoinByInviteCode(externalUserID, code string) (*models.StudyGroup, error) {
	var group models.StudyGroup
	err := s.DB.Where("invite_code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invite code", ErrNotFound)
		}
		return nil, err
	}

	var existing models.GroupMember
	err = s.DB.Where("group_id = ? AND external_user_id = ?", group.ID, externalUserID).First(&existing).Error
	if err == nil {
		return &group, nil // already a member
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := models.GroupMember{
		ID:             uuid.NewString(),
		GroupID:        group.ID,
		ExternalUserID: externalUserID,
	}
	if err := s.DB.Create(&member).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// GroupsForUser lists the groups a user belongs to
func (s *GroupService) GroupsForUser(externalUserID string) ([]models.StudyGroup, error) {
	var groups []models.StudyGroup
	err := s.DB.
		Joins("JOIN group_members ON group_members.group_id = study_groups.id").
		Where("group_members.external_user_id = ?", externalUserID).
		Find(&groups).Error
	return groups, err
}

// LeaderboardEntry is one row of a group's weekly XP ranking
type LeaderboardEntry struct {
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username"`
	WeeklyXP       int64  `json:"weekly_xp"`
	Rank           int    `json:"rank"`
}

// WeeklyLeaderboard ranks a group's members by XP-ledger sum over the week
// starting at weekStart.
func (s *GroupService) WeeklyLeaderboard(groupID, weekStart string) ([]LeaderboardEntry, error) {
	var group models.StudyGroup
	if err := s.DB.Where("id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
		}
		return nil, err
	}

	var members []models.GroupMember
	if err := s.DB.Where("group_id = ?", groupID).Find(&members).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		xp, err := s.XP.WeeklyXP(s.DB, m.ExternalUserID, weekStart)
		if err != nil {
			return nil, err
		}

		entry := LeaderboardEntry{ExternalUserID: m.ExternalUserID, WeeklyXP: xp}
		var user models.StudentUser
		if err := s.DB.Where("external_user_id = ?", m.ExternalUserID).First(&user).Error; err == nil {
			entry.Username = user.Username
		}
		entries = append(entries, entry)
	}

	// rank by weekly XP, ties keep insertion order
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].WeeklyXP > entries[j].WeeklyXP
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
