package server

import (
	"encoding/json"
	"errors"
	"testing"

	"warden/internal/models"
	"warden/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToResultResponse_Warnings(t *testing.T) {
	res := &service.Result{
		User: &models.User{ID: "u1"},
		Warnings: []service.SideEffectWarning{
			{Effect: service.EffectInApp, Err: errors.New("notifications table locked")},
		},
	}

	b, err := json.Marshal(toResultResponse(res))
	require.NoError(t, err)

	var out struct {
		Warnings []map[string]string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, map[string]string{
		"effect": service.EffectInApp,
		"error":  "notifications table locked",
	}, out.Warnings[0])
}

func TestToResultResponse_EmptyWarningsIsArray(t *testing.T) {
	b, err := json.Marshal(toResultResponse(&service.Result{User: &models.User{ID: "u1"}}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"warnings":[]`)
}
