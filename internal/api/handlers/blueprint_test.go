package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeusbolt/internal/core"
	"zeusbolt/internal/types"
)

// mockBlueprintGenerator implements external.BlueprintGenerator for testing.
type mockBlueprintGenerator struct {
	blueprint *types.Blueprint
	err       error
	contents  []string
}

func (m *mockBlueprintGenerator) GenerateBlueprint(ctx context.Context, content string) (*types.Blueprint, error) {
	m.contents = append(m.contents, content)
	return m.blueprint, m.err
}

func newBlueprintHandler(gen *mockBlueprintGenerator, sub *types.Subscription, count, freeLimit int) *BlueprintHandler {
	return NewBlueprintHandler(
		gen,
		&mockSubscriptionReader{sub: sub},
		&mockProjectStore{count: count},
		core.NewValidator(nil),
		freeLimit,
		nil,
	)
}

func TestBlueprint_Generate(t *testing.T) {
	gen := &mockBlueprintGenerator{blueprint: &types.Blueprint{
		Overview:   "A habit tracker for climbers.",
		Pages:      []string{"Dashboard", "Log"},
		DataModels: []string{"User", "Session"},
		NextSteps:  "Validate with three gyms.",
	}}
	h := newBlueprintHandler(gen, nil, 0, 3)

	rec := httptest.NewRecorder()
	h.Generate(rec, newAuthedJSONRequest(http.MethodPost, "/v1/blueprints", map[string]string{
		"title": "Crux",
		"idea":  "a habit tracker for climbers",
	}, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gen.contents, 1)
	assert.Contains(t, gen.contents[0], "Crux")
	assert.Contains(t, gen.contents[0], "a habit tracker for climbers")

	var resp struct {
		Data generateBlueprintResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Crux", resp.Data.Title)
	require.NotNil(t, resp.Data.Blueprint)
	assert.Equal(t, []string{"Dashboard", "Log"}, resp.Data.Blueprint.Pages)
}

func TestBlueprint_Generate_MissingFields(t *testing.T) {
	gen := &mockBlueprintGenerator{}
	h := newBlueprintHandler(gen, nil, 0, 3)

	rec := httptest.NewRecorder()
	h.Generate(rec, newAuthedJSONRequest(http.MethodPost, "/v1/blueprints", map[string]string{
		"title": "Crux",
	}, ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, gen.contents)
}

func TestBlueprint_Generate_FreeLimitReached(t *testing.T) {
	gen := &mockBlueprintGenerator{}
	h := newBlueprintHandler(gen, nil, 3, 3)

	rec := httptest.NewRecorder()
	h.Generate(rec, newAuthedJSONRequest(http.MethodPost, "/v1/blueprints", map[string]string{
		"title": "Crux",
		"idea":  "one more idea",
	}, ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(types.ErrCodeLimitProjects), decodeErrorCode(t, rec.Body.Bytes()))
	assert.Empty(t, gen.contents, "no model call when over the limit")
}

func TestBlueprint_Generate_EntitledLiftsLimit(t *testing.T) {
	gen := &mockBlueprintGenerator{blueprint: &types.Blueprint{Overview: "ok"}}
	h := newBlueprintHandler(gen, proSubscription(), 50, 3)

	rec := httptest.NewRecorder()
	h.Generate(rec, newAuthedJSONRequest(http.MethodPost, "/v1/blueprints", map[string]string{
		"title": "Crux",
		"idea":  "a habit tracker",
	}, ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, gen.contents, 1)
}

func TestBlueprint_Generate_UpstreamFailure(t *testing.T) {
	gen := &mockBlueprintGenerator{
		err: types.NewAppError(types.ErrCodeUpstreamAI, "model unavailable", nil),
	}
	h := newBlueprintHandler(gen, nil, 0, 3)

	rec := httptest.NewRecorder()
	h.Generate(rec, newAuthedJSONRequest(http.MethodPost, "/v1/blueprints", map[string]string{
		"title": "Crux",
		"idea":  "a habit tracker",
	}, ""))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(types.ErrCodeUpstreamAI), decodeErrorCode(t, rec.Body.Bytes()))
}
