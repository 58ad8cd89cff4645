package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"finera/config"
	"finera/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	out    string
	err    error
	called bool
}

func (s *stubGenerator) Generate(context.Context, string, string) (string, error) {
	s.called = true
	return s.out, s.err
}

func newAIRouter(svc *service.SuggestionService) *gin.Engine {
	r := gin.New()
	r.Use(setUserIDMiddleware(1))
	r.POST("/ai/suggestions", NewAIHandler(svc).Suggestions)
	return r
}

func TestSuggestions_Success(t *testing.T) {
	gen := &stubGenerator{out: `[
		{"title":"Kottu night","description":"Dinner for two","category":"Food","estimatedCost":900},
		{"title":"Weekend trip","description":"Too expensive","category":"Entertainment","estimatedCost":15000}
	]`}
	r := newAIRouter(service.NewSuggestionServiceWithGenerator(gen, time.Second))

	w := doRequest(r, http.MethodPost, "/ai/suggestions", `{"amount":1000,"location":"Kandy","categories":["Food"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	items := decodeData(t, w)["suggestions"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "Kottu night", item["title"])
	assert.Equal(t, 900.0, item["estimatedCost"])
}

func TestSuggestions_InvalidAmount(t *testing.T) {
	gen := &stubGenerator{out: `[]`}
	r := newAIRouter(service.NewSuggestionServiceWithGenerator(gen, time.Second))

	for _, body := range []string{`{"amount":0}`, `{"amount":-20}`, `{}`} {
		w := doRequest(r, http.MethodPost, "/ai/suggestions", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.False(t, gen.called)
}

func TestSuggestions_UpstreamFailures(t *testing.T) {
	config.GlobalConfig = &config.Config{Server: config.ServerConfig{Mode: "release"}}
	defer func() { config.GlobalConfig = nil }()

	tests := []struct {
		name string
		svc  *service.SuggestionService
	}{
		{"provider error", service.NewSuggestionServiceWithGenerator(&stubGenerator{err: errors.New("quota exceeded")}, time.Second)},
		{"not json", service.NewSuggestionServiceWithGenerator(&stubGenerator{out: "sorry, I cannot help"}, time.Second)},
		{"empty", service.NewSuggestionServiceWithGenerator(&stubGenerator{out: "  "}, time.Second)},
		{"no api key", service.NewSuggestionService(&config.AIConfig{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(newAIRouter(tt.svc), http.MethodPost, "/ai/suggestions", `{"amount":1000}`)
			assert.Equal(t, http.StatusBadGateway, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, "AI suggestions are unavailable right now", resp["message"])
			assert.NotContains(t, w.Body.String(), "quota")
		})
	}
}
