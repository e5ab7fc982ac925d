package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ggonzalez94/yieldscout/internal/config"
	"github.com/ggonzalez94/yieldscout/internal/model"
)

func TestRenderJSONSelectResultsOnly(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"project": "amnis-finance", "apy": 8.5}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "json", SelectFields: []string{"project"}, ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(out) != 1 || out[0]["project"] != "amnis-finance" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, ok := out[0]["apy"]; ok {
		t.Fatalf("field projection failed: %s", buf.String())
	}
}

func TestRenderPlain(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"project": "thala", "riskLevel": "low"}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "project=thala riskLevel=low") {
		t.Fatalf("unexpected plain output: %s", buf.String())
	}
}

func TestRenderPlainTextResponse(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data: model.Response{
			Status:  model.StatusSuccess,
			Message: "safest opportunities",
			Recommendations: []model.Recommendation{
				{Rank: 1, Project: "amnis-finance", Summary: "amnis-finance (STAPT)\n  APY: 8.50%"},
			},
		},
		Meta: model.EnvelopeMeta{Timestamp: time.Now()},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, config.Settings{OutputMode: "plain", ResultsOnly: true}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "safest opportunities\n\n1. amnis-finance (STAPT)\n  APY: 8.50%\n"
	if buf.String() != want {
		t.Fatalf("unexpected plain output:\n%q", buf.String())
	}
}

func TestRenderJSONEnvelopeWithError(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: false,
		Error:   &model.ErrorBody{Code: 12, Type: "network_error", Message: "yields aggregator returned 502"},
		Meta:    model.EnvelopeMeta{Command: "analyze", Chain: "aptos"},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, config.Settings{OutputMode: "json"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	errBody, _ := decoded["error"].(map[string]any)
	if decoded["success"] != false || errBody["type"] != "network_error" {
		t.Fatalf("unexpected envelope: %s", buf.String())
	}
}

func TestRenderSelectDottedPaths(t *testing.T) {
	env := model.Envelope{
		Success: true,
		Data: model.QueryResult{
			Resolution: model.Resolution{Kind: model.KindMatchedProvider, Message: "matched"},
			Analysis: model.AnalysisResult{
				BestOverall: &model.Opportunity{Pool: model.Pool{Project: "amnis-finance"}},
			},
		},
	}
	settings := config.Settings{OutputMode: "json", ResultsOnly: true, SelectFields: []string{"resolution.kind", "analysis.bestOverall.project", "analysis.missing"}}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if out["resolution.kind"] != "matchedProvider" || out["analysis.bestOverall.project"] != "amnis-finance" {
		t.Fatalf("unexpected selection: %s", buf.String())
	}
	if _, ok := out["analysis.missing"]; ok {
		t.Fatalf("missing path should be omitted: %s", buf.String())
	}
}

func TestRenderPlainEnvelope(t *testing.T) {
	env := model.Envelope{
		Success:  true,
		Data:     model.Response{Status: model.StatusSuccess, Message: "no opportunities match filters: minApy >= 9999"},
		Warnings: []string{"no active pools found for Aptos"},
		Meta:     model.EnvelopeMeta{Command: "recommend", Chain: "aptos", Cache: model.CacheStatus{Status: "miss"}},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, config.Settings{OutputMode: "plain"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "success=true command=recommend chain=aptos cache=miss\n" +
		"no opportunities match filters: minApy >= 9999\n" +
		"warning: no active pools found for Aptos\n"
	if buf.String() != want {
		t.Fatalf("unexpected plain envelope:\n%q", buf.String())
	}
}

func TestRenderPlainErrorEnvelope(t *testing.T) {
	env := model.Envelope{
		Success: false,
		Data:    []any{},
		Error:   &model.ErrorBody{Code: 17, Type: "data_format_error", Message: "unexpected pools payload"},
		Meta:    model.EnvelopeMeta{Command: "analyze"},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, config.Settings{OutputMode: "plain", ResultsOnly: true}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Fatalf("results-only error data should render as empty list, got %q", buf.String())
	}
	buf.Reset()
	if err := Render(&buf, env, config.Settings{OutputMode: "plain"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "error: unexpected pools payload (data_format_error, exit 17)") {
		t.Fatalf("expected error line, got %q", buf.String())
	}
}
