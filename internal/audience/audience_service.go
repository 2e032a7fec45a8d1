package audience

//go:generate mockgen -destination=mock_directory.go -package=audience live-auction/internal/audience Directory

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"
)

// Directory resolves login sessions. Components that gate on role or
// restrictions depend on this rather than on the store layout.
type Directory interface {
	Get(ctx context.Context, roomID, sessionID string) (models.Session, error)
}

// Restriction names a moderator-controlled flag
type Restriction string

const (
	RestrictMute   Restriction = "isMuted"
	RestrictBidBan Restriction = "isBidBanned"
	RestrictKick   Restriction = "isKicked"
)

const (
	hostUserID       = "HOST"
	moderatorUserID  = "MODERATOR"
	audienceIDPrefix = "USER-"
)

var phonePattern = regexp.MustCompile(`^\d{10,}$`)

// RegisterRequest carries the login form
type RegisterRequest struct {
	Phone string
	Email string
	Role  models.Role
}

// AudienceService keeps one AudienceRecord per login session
type AudienceService struct {
	repo repository.RealtimeDB
	now  func() time.Time
}

// NewAudienceService creates a new AudienceService instance
func NewAudienceService(repo repository.RealtimeDB) *AudienceService {
	return &AudienceService{repo: repo, now: time.Now}
}

// Register validates the login form and appends a new AudienceRecord
func (s *AudienceService) Register(ctx context.Context, roomID string, req RegisterRequest) (models.Session, error) {
	if !utils.ValidRoomID(roomID) {
		return models.Session{}, fmt.Errorf("audience: %w - bad room id %q", biddingerrors.ErrInvalidInput, roomID)
	}
	if !phonePattern.MatchString(req.Phone) {
		return models.Session{}, fmt.Errorf("audience: %w - phone must be at least 10 digits", biddingerrors.ErrInvalidInput)
	}
	if !req.Role.Valid() {
		return models.Session{}, fmt.Errorf("audience: %w - unknown role %q", biddingerrors.ErrInvalidInput, req.Role)
	}

	record := models.AudienceRecord{
		UserID:   userIDFor(req.Role),
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     req.Role,
		JoinedAt: s.now().UnixMilli(),
	}

	key, err := repository.PushJSON(ctx, s.repo, repository.AudiencePath(roomID), record)
	if err != nil {
		return models.Session{}, fmt.Errorf("audience: failed to register in room %s: %w", roomID, err)
	}

	utils.Info("audience: session registered", map[string]any{
		"room_id":    roomID,
		"session_id": key,
		"user_id":    record.UserID,
		"role":       record.Role,
	})
	return models.Session{ID: key, RoomID: roomID, AudienceRecord: record}, nil
}

func userIDFor(role models.Role) string {
	switch role {
	case models.RoleHost:
		return hostUserID
	case models.RoleModerator:
		return moderatorUserID
	default:
		return audienceIDPrefix + utils.GenerateUserSuffix()
	}
}

// Get returns the session stored under sessionID
func (s *AudienceService) Get(ctx context.Context, roomID, sessionID string) (models.Session, error) {
	if roomID == "" || sessionID == "" {
		return models.Session{}, fmt.Errorf("audience: %w - missing room or session id", biddingerrors.ErrInvalidInput)
	}

	var record models.AudienceRecord
	ok, err := repository.GetJSON(ctx, s.repo, repository.AudienceRecordPath(roomID, sessionID), &record)
	if err != nil {
		return models.Session{}, fmt.Errorf("audience: failed to read session %s: %w", sessionID, err)
	}
	if !ok {
		return models.Session{}, fmt.Errorf("audience: %w - %s in room %s", biddingerrors.ErrSessionNotFound, sessionID, roomID)
	}
	return models.Session{ID: sessionID, RoomID: roomID, AudienceRecord: record}, nil
}

// List returns every session of the room in join order
func (s *AudienceService) List(ctx context.Context, roomID string) ([]models.Session, error) {
	keys, records, err := repository.ChildrenJSON[models.AudienceRecord](ctx, s.repo, repository.AudiencePath(roomID))
	if err != nil {
		return nil, fmt.Errorf("audience: failed to list room %s: %w", roomID, err)
	}

	sessions := make([]models.Session, 0, len(records))
	for i, rec := range records {
		sessions = append(sessions, models.Session{ID: keys[i], RoomID: roomID, AudienceRecord: rec})
	}
	return sessions, nil
}

// SetRestriction flips one restriction on a target session. Only staff may do
// this and the host cannot be restricted.
func (s *AudienceService) SetRestriction(ctx context.Context, roomID, actorID, targetID string, restriction Restriction, value bool) (models.Session, error) {
	actor, err := s.Get(ctx, roomID, actorID)
	if err != nil {
		return models.Session{}, err
	}
	if !actor.Role.IsStaff() {
		return models.Session{}, fmt.Errorf("audience: %w", biddingerrors.ErrNotStaff)
	}

	switch restriction {
	case RestrictMute, RestrictBidBan, RestrictKick:
	default:
		return models.Session{}, fmt.Errorf("audience: %w - unknown restriction %q", biddingerrors.ErrInvalidInput, restriction)
	}

	path := repository.AudienceRecordPath(roomID, targetID)
	record, err := repository.UpdateJSON(ctx, s.repo, path, func(cur models.AudienceRecord, exists bool) (models.AudienceRecord, error) {
		if !exists {
			return cur, biddingerrors.ErrSessionNotFound
		}
		if cur.Role == models.RoleHost {
			return cur, biddingerrors.ErrPermission
		}
		switch restriction {
		case RestrictMute:
			cur.Restrictions.IsMuted = value
		case RestrictBidBan:
			cur.Restrictions.IsBidBanned = value
		case RestrictKick:
			cur.Restrictions.IsKicked = value
		}
		return cur, nil
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("audience: failed to set %s on %s: %w", restriction, targetID, err)
	}

	utils.Info("audience: restriction updated", map[string]any{
		"room_id":     roomID,
		"actor":       actor.UserID,
		"target":      record.UserID,
		"restriction": restriction,
		"value":       value,
	})
	return models.Session{ID: targetID, RoomID: roomID, AudienceRecord: record}, nil
}
