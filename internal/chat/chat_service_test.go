package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"live-auction/internal/audience"
	"live-auction/internal/biddingerrors"
	"live-auction/internal/models"
	"live-auction/internal/repository"
	"live-auction/utils"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestChatService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := audience.NewMockDirectory(ctrl)
	svc := NewChatService(repository.NewMemoryRepo(), dir)
	ctx := context.Background()

	session := func(userID string, role models.Role, r models.Restrictions) models.Session {
		return models.Session{ID: "s", RoomID: "room1", AudienceRecord: models.AudienceRecord{UserID: userID, Role: role, Restrictions: r}}
	}

	tests := []struct {
		name        string
		text        string
		mockSetup   func()
		expectedErr error
		wantHost    bool
	}{
		{
			name: "viewer_message",
			text: "  hello  ",
			mockSetup: func() {
				dir.EXPECT().Get(gomock.Any(), "room1", "s").Return(session("USER-ABC123XYZ", models.RoleAudience, models.Restrictions{}), nil)
			},
		},
		{
			name: "host_message",
			text: "welcome",
			mockSetup: func() {
				dir.EXPECT().Get(gomock.Any(), "room1", "s").Return(session("HOST", models.RoleHost, models.Restrictions{}), nil)
			},
			wantHost: true,
		},
		{
			name: "muted",
			text: "hi",
			mockSetup: func() {
				dir.EXPECT().Get(gomock.Any(), "room1", "s").Return(session("USER-1", models.RoleAudience, models.Restrictions{IsMuted: true}), nil)
			},
			expectedErr: biddingerrors.ErrMuted,
		},
		{
			name: "kicked",
			text: "hi",
			mockSetup: func() {
				dir.EXPECT().Get(gomock.Any(), "room1", "s").Return(session("USER-1", models.RoleAudience, models.Restrictions{IsKicked: true}), nil)
			},
			expectedErr: biddingerrors.ErrKicked,
		},
		{
			name:        "blank",
			text:        "   ",
			mockSetup:   func() {},
			expectedErr: biddingerrors.ErrValidation,
		},
		{
			name: "unknown_session",
			text: "hi",
			mockSetup: func() {
				dir.EXPECT().Get(gomock.Any(), "room1", "s").Return(models.Session{}, biddingerrors.ErrSessionNotFound)
			},
			expectedErr: biddingerrors.ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			msg, err := svc.Send(ctx, "room1", "s", tc.text)
			if tc.expectedErr != nil {
				require.True(t, errors.Is(err, tc.expectedErr), "expected %v, got %v", tc.expectedErr, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, models.ChatTypeMessage, msg.Type)
			require.Equal(t, tc.wantHost, msg.IsHost)
			require.NotEmpty(t, msg.User)
		})
	}

	recent, err := svc.Recent(ctx, "room1", 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "hello", recent[0].Text)
	require.Equal(t, "Gold_Dust_Garms", recent[0].User)
	require.Equal(t, "HOST", recent[1].User)
}

func TestChatService_AnnounceAndPostBid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewChatService(repository.NewMemoryRepo(), nil)

	require.NoError(t, svc.Announce(ctx, "room1", "🚨 AUCTION STARTED AT ₹100!"))
	require.NoError(t, svc.PostBid(ctx, "room1", "USER-ABC123XYZ", 150))

	msgs, err := svc.Recent(ctx, "room1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, SystemUser, msgs[0].User)
	require.Equal(t, models.ChatMessage{User: utils.Pseudonym("USER-ABC123XYZ"), Text: "New Bid: ₹150", Type: models.ChatTypeBid}, msgs[1])
}

func TestChatService_RecentKeepsNewest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewChatService(repository.NewMemoryRepo(), nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Announce(ctx, "room1", fmt.Sprintf("line %d", i)))
	}

	msgs, err := svc.Recent(ctx, "room1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "line 3", msgs[0].Text)
	require.Equal(t, "line 4", msgs[1].Text)
}
