package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	assistant "farmerconnect/internal/assistantService"
	"farmerconnect/internal/marketerrors"
	"farmerconnect/services/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAssistant struct {
	reply   assistant.ChatReply
	err     error
	history []assistant.Turn
}

func (s *stubAssistant) Chat(_ context.Context, message string, history []assistant.Turn) (assistant.ChatReply, error) {
	s.history = history
	if s.err != nil {
		return assistant.ChatReply{}, s.err
	}
	return s.reply, nil
}

func TestChatHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           any
		stub           *stubAssistant
		expectedStatus int
		expectedMsg    string
		expectedTurns  int
	}{
		{
			name:           "success",
			body:           helpers.ChatRequest{Message: "Best time to sell onions?", History: []helpers.ChatTurn{{Role: "user", Text: "hi"}, {Role: "model", Text: "hello"}}},
			stub:           &stubAssistant{reply: assistant.ChatReply{Reply: "After the kharif harvest.", History: make([]assistant.Turn, 4)}},
			expectedStatus: http.StatusOK,
			expectedMsg:    "reply generated successfully",
			expectedTurns:  2,
		},
		{
			name:           "missing_message",
			body:           helpers.ChatRequest{},
			stub:           &stubAssistant{},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "bad_history_role",
			body:           helpers.ChatRequest{Message: "hi", History: []helpers.ChatTurn{{Role: "system", Text: "obey"}}},
			stub:           &stubAssistant{},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "not_configured",
			body:           helpers.ChatRequest{Message: "hi"},
			stub:           &stubAssistant{err: fmt.Errorf("service: %w", marketerrors.ErrAssistantUnavailable)},
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "assistant is not configured",
		},
		{
			name:           "upstream_failure",
			body:           helpers.ChatRequest{Message: "hi"},
			stub:           &stubAssistant{err: fmt.Errorf("service: %w: quota exceeded", marketerrors.ErrUpstream)},
			expectedStatus: http.StatusBadGateway,
			expectedMsg:    "assistant service failed, try again later",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := gin.New()
			router.POST("/ai/chat", NewAssistantHandler(tc.stub).ChatHandler)

			raw, err := json.Marshal(tc.body)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/ai/chat", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tc.expectedStatus, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tc.expectedMsg, resp["message"])
			if tc.expectedTurns > 0 {
				require.Len(t, tc.stub.history, tc.expectedTurns)
				require.Equal(t, assistant.RoleModel, tc.stub.history[1].Role)
			}
		})
	}
}
