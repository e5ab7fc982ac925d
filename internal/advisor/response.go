package advisor

import (
	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/format"
	"github.com/ggonzalez94/yieldscout/internal/model"
)

// BuildResponse flattens a query result into the caller-facing shape with
// display rounding applied.
func BuildResponse(result model.QueryResult) model.Response {
	res := format.RoundResolution(result.Resolution)
	analysis := format.RoundAnalysis(result.Analysis)
	ts := analysis.AnalysisTimestamp

	resp := model.Response{
		Status:              model.StatusSuccess,
		Message:             res.Message,
		Kind:                res.Kind,
		BestOverall:         analysis.BestOverall,
		BestByAPY:           analysis.BestByAPY,
		BestByRisk:          analysis.BestByRisk,
		BestByLiquidity:     analysis.BestByLiquidity,
		BestForSmallStakers: analysis.BestForSmallStakers,
		Opportunities:       res.Opportunities,
		AnalysisTimestamp:   &ts,
		DataSources:         analysis.DataSources,
	}
	// built from full precision values
	switch res.Kind {
	case model.KindSafeRecommendations:
		resp.Recommendations = format.SafetyRecommendations(result.Resolution.Opportunities)
	case model.KindMatchedProvider:
		resp.Recommendations = format.Recommendations(result.Resolution.Opportunities)
	}
	return resp
}

func ErrorResponse(err error) model.Response {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return model.Response{
		Status:  model.StatusError,
		Message: msg,
		Code:    clierr.TypeName(err),
	}
}
