package handler

import (
	"fmt"
	"net/http"
	"testing"

	"live-auction/internal/audience"
	"live-auction/internal/biddingerrors"
	"live-auction/internal/models"
	"live-auction/services/bidding/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newAudienceRouter(t *testing.T) (*gin.Engine, *MockAudienceServiceInterface) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockService := NewMockAudienceServiceInterface(ctrl)

	h := NewAudienceHandler(mockService)
	router := gin.New()
	router.POST("/rooms/:room_id/audience", h.RegisterHandler)
	router.GET("/rooms/:room_id/audience", h.ListAudienceHandler)
	router.GET("/rooms/:room_id/audience/:session_id", h.GetSessionHandler)
	router.PUT("/rooms/:room_id/audience/:session_id/restrictions", h.SetRestrictionHandler)
	return router, mockService
}

func boolp(v bool) *bool { return &v }

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func(m *MockAudienceServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:        "success",
			requestBody: helpers.RegisterRequest{Phone: "9876543210", Role: models.RoleAudience},
			mockSetup: func(m *MockAudienceServiceInterface) {
				m.EXPECT().
					Register(gomock.Any(), "room1", audience.RegisterRequest{Phone: "9876543210", Role: models.RoleAudience}).
					Return(models.Session{ID: "s1", RoomID: "room1", AudienceRecord: models.AudienceRecord{UserID: "USER-ABCDEFGHI", Role: models.RoleAudience}}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "session registered successfully",
		},
		{
			name:           "missing_phone",
			requestBody:    helpers.RegisterRequest{Role: models.RoleAudience},
			mockSetup:      func(m *MockAudienceServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "short_phone",
			requestBody: helpers.RegisterRequest{Phone: "123", Role: models.RoleAudience},
			mockSetup: func(m *MockAudienceServiceInterface) {
				m.EXPECT().
					Register(gomock.Any(), "room1", audience.RegisterRequest{Phone: "123", Role: models.RoleAudience}).
					Return(models.Session{}, fmt.Errorf("audience: %w", biddingerrors.ErrInvalidInput))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router, mockService := newAudienceRouter(t)
			tc.mockSetup(mockService)

			status, resp := performRequest(t, router, http.MethodPost, "/rooms/room1/audience", tc.requestBody)
			require.Equal(t, tc.expectedStatus, status)
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

func TestSetRestrictionHandler(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		mockSetup      func(m *MockAudienceServiceInterface)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:        "ban",
			requestBody: helpers.RestrictionRequest{ActorSessionID: "mod", Restriction: "isBidBanned", Value: boolp(true)},
			mockSetup: func(m *MockAudienceServiceInterface) {
				m.EXPECT().
					SetRestriction(gomock.Any(), "room1", "mod", "s1", audience.RestrictBidBan, true).
					Return(models.Session{ID: "s1", AudienceRecord: models.AudienceRecord{Restrictions: models.Restrictions{IsBidBanned: true}}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "restriction updated successfully",
		},
		{
			name:        "unban",
			requestBody: helpers.RestrictionRequest{ActorSessionID: "mod", Restriction: "isBidBanned", Value: boolp(false)},
			mockSetup: func(m *MockAudienceServiceInterface) {
				m.EXPECT().
					SetRestriction(gomock.Any(), "room1", "mod", "s1", audience.RestrictBidBan, false).
					Return(models.Session{ID: "s1"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "restriction updated successfully",
		},
		{
			name:           "unknown_restriction",
			requestBody:    helpers.RestrictionRequest{ActorSessionID: "mod", Restriction: "isShadowed", Value: boolp(true)},
			mockSetup:      func(m *MockAudienceServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "missing_value",
			requestBody:    map[string]any{"actor_session_id": "mod", "restriction": "isMuted"},
			mockSetup:      func(m *MockAudienceServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:        "viewer_cannot_moderate",
			requestBody: helpers.RestrictionRequest{ActorSessionID: "v1", Restriction: "isKicked", Value: boolp(true)},
			mockSetup: func(m *MockAudienceServiceInterface) {
				m.EXPECT().
					SetRestriction(gomock.Any(), "room1", "v1", "s1", audience.RestrictKick, true).
					Return(models.Session{}, fmt.Errorf("audience: %w", biddingerrors.ErrNotStaff))
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "permission denied",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router, mockService := newAudienceRouter(t)
			tc.mockSetup(mockService)

			status, resp := performRequest(t, router, http.MethodPut, "/rooms/room1/audience/s1/restrictions", tc.requestBody)
			require.Equal(t, tc.expectedStatus, status)
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

func TestListAndGetAudienceHandlers(t *testing.T) {
	t.Parallel()
	router, mockService := newAudienceRouter(t)

	mockService.EXPECT().List(gomock.Any(), "room1").Return(nil, nil)
	status, resp := performRequest(t, router, http.MethodGet, "/rooms/room1/audience", nil)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, resp["data"].([]any))

	mockService.EXPECT().Get(gomock.Any(), "room1", "nope").
		Return(models.Session{}, fmt.Errorf("audience: %w", biddingerrors.ErrSessionNotFound))
	status, resp = performRequest(t, router, http.MethodGet, "/rooms/room1/audience/nope", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Contains(t, resp["message"], "session not found")
}
