package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponse(t *testing.T) {
	tests := []struct {
		status      int
		wantCode    int
		wantSuccess bool
	}{
		{status: 0, wantCode: http.StatusOK, wantSuccess: true},
		{status: http.StatusOK, wantCode: http.StatusOK, wantSuccess: true},
		{status: http.StatusCreated, wantCode: http.StatusCreated, wantSuccess: true},
		{status: 299, wantCode: 299, wantSuccess: true},
		{status: 199, wantCode: 199, wantSuccess: false},
		{status: http.StatusMultipleChoices, wantCode: http.StatusMultipleChoices, wantSuccess: false},
		{status: http.StatusNotFound, wantCode: http.StatusNotFound, wantSuccess: false},
		{status: http.StatusInternalServerError, wantCode: http.StatusInternalServerError, wantSuccess: false},
	}

	for _, tt := range tests {
		resp := newResponse(nil, tt.status, "")
		assert.Equal(t, tt.wantCode, resp.Code, "status %d", tt.status)
		assert.Equal(t, tt.wantSuccess, resp.Success, "status %d", tt.status)
	}
}

func TestNewResponse_JSON(t *testing.T) {
	raw, err := json.Marshal(newResponse(nil, http.StatusNotFound, msgShowNotFound))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":404,"success":false,"message":"No show with this id exists","result":null}`, string(raw))

	raw, err = json.Marshal(newResponse(map[string]any{"shows": []Show{{ID: 1, Name: "Lost", EpisodesSeen: 4}}}, http.StatusOK, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":200,"success":true,"message":"","result":{"shows":[{"id":1,"name":"Lost","episodes_seen":4}]}}`, string(raw))
}

func TestShowPatch(t *testing.T) {
	name := "Severance"
	episodes := 9
	base := Show{ID: 3, Name: "severance", EpisodesSeen: 2}

	assert.True(t, ShowPatch{}.Empty())
	assert.Equal(t, base, ShowPatch{}.Apply(base))
	assert.Equal(t, Show{ID: 3, Name: "Severance", EpisodesSeen: 2}, ShowPatch{Name: &name}.Apply(base))
	assert.Equal(t, Show{ID: 3, Name: "Severance", EpisodesSeen: 9}, ShowPatch{Name: &name, EpisodesSeen: &episodes}.Apply(base))
	assert.False(t, ShowPatch{EpisodesSeen: &episodes}.Empty())
}
