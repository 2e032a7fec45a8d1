package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"live-auction/internal/audience"
	"live-auction/internal/biddingerrors"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"
)

// SystemUser is the author of announcements
const SystemUser = "SYSTEM"

const maxMessageLength = 500

// ChatService appends lines to a room's chat log
type ChatService struct {
	repo repository.RealtimeDB
	dir  audience.Directory
}

// NewChatService creates a new ChatService instance
func NewChatService(repo repository.RealtimeDB, dir audience.Directory) *ChatService {
	return &ChatService{repo: repo, dir: dir}
}

// Announce appends a system line
func (s *ChatService) Announce(ctx context.Context, roomID, text string) error {
	msg := models.ChatMessage{User: SystemUser, Text: text, IsHost: true, Type: models.ChatTypeMessage}
	if _, err := repository.PushJSON(ctx, s.repo, repository.ChatPath(roomID), msg); err != nil {
		return fmt.Errorf("chat: failed to announce in room %s: %w", roomID, err)
	}
	return nil
}

// PostBid appends the line shown for an accepted bid
func (s *ChatService) PostBid(ctx context.Context, roomID, userID string, amount int64) error {
	msg := models.ChatMessage{
		User: utils.Pseudonym(userID),
		Text: fmt.Sprintf("New Bid: ₹%d", amount),
		Type: models.ChatTypeBid,
	}
	if _, err := repository.PushJSON(ctx, s.repo, repository.ChatPath(roomID), msg); err != nil {
		return fmt.Errorf("chat: failed to post bid in room %s: %w", roomID, err)
	}
	return nil
}

// Send appends a user line. Muted and kicked sessions are refused.
func (s *ChatService) Send(ctx context.Context, roomID, sessionID, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxMessageLength {
		return models.ChatMessage{}, fmt.Errorf("chat: %w - message must be 1-%d characters", biddingerrors.ErrInvalidInput, maxMessageLength)
	}

	sess, err := s.dir.Get(ctx, roomID, sessionID)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("chat: %w", err)
	}
	switch {
	case sess.Restrictions.IsKicked:
		return models.ChatMessage{}, fmt.Errorf("chat: %w", biddingerrors.ErrKicked)
	case sess.Restrictions.IsMuted:
		return models.ChatMessage{}, fmt.Errorf("chat: %w", biddingerrors.ErrMuted)
	}

	msg := models.ChatMessage{
		User:   utils.Pseudonym(sess.UserID),
		Text:   text,
		IsHost: sess.Role == models.RoleHost,
		Type:   models.ChatTypeMessage,
	}
	if _, err := repository.PushJSON(ctx, s.repo, repository.ChatPath(roomID), msg); err != nil {
		return models.ChatMessage{}, fmt.Errorf("chat: failed to send in room %s: %w", roomID, err)
	}
	return msg, nil
}

// Recent returns up to n of the newest lines, oldest first
func (s *ChatService) Recent(ctx context.Context, roomID string, n int) ([]models.ChatMessage, error) {
	_, msgs, err := repository.ChildrenJSON[models.ChatMessage](ctx, s.repo, repository.ChatPath(roomID))
	if err != nil {
		return nil, fmt.Errorf("chat: failed to read room %s: %w", roomID, err)
	}
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}
