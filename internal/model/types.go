package model

import (
	"fmt"
	"strings"
	"time"
)

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
	Command   string      `json:"command"`
	Chain     string      `json:"chain,omitempty"`
	LatencyMS int64       `json:"latency_ms"`
	Cache     CacheStatus `json:"cache"`
}

type CacheStatus struct {
	Status string `json:"status"`
	AgeMS  int64  `json:"age_ms"`
}

// RiskLevel is the coarse risk tier of an opportunity.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Order ranks tiers from safest (1) to riskiest (3). Unknown tiers sort last.
func (r RiskLevel) Order() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 4
	}
}

// Pool is a single listing from the yields aggregator.
type Pool struct {
	PoolID       string   `json:"poolId"`
	Chain        string   `json:"chain"`
	Project      string   `json:"project"`
	Symbol       string   `json:"symbol"`
	TVLUSD       float64  `json:"tvlUsd"`
	APY          float64  `json:"apy"`
	APYBase      *float64 `json:"apyBase,omitempty"`
	APYReward    *float64 `json:"apyReward,omitempty"`
	RewardTokens []string `json:"rewardTokens,omitempty"`
	URL          string   `json:"url,omitempty"`
	ILRisk       string   `json:"ilRisk,omitempty"`
	Stablecoin   bool     `json:"stablecoin,omitempty"`
}

// Opportunity is a pool after classification and risk assessment.
type Opportunity struct {
	Pool
	IsNativeAsset bool      `json:"isNativeAsset"`
	RiskLevel     RiskLevel `json:"riskLevel"`
	RiskFactors   []string  `json:"riskFactors"`
}

type AnalysisResult struct {
	BestOverall          *Opportunity  `json:"bestOverall"`
	BestByAPY            *Opportunity  `json:"bestByAPY"`
	BestByRisk           *Opportunity  `json:"bestByRisk"`
	BestByLiquidity      *Opportunity  `json:"bestByLiquidity"`
	BestForSmallStakers  *Opportunity  `json:"bestForSmallStakers"`
	AllOpportunities     []Opportunity `json:"allOpportunities"`
	AnalysisTimestamp    time.Time     `json:"analysisTimestamp"`
	RecommendationReason string        `json:"recommendationReason"`
	DataSources          []string      `json:"dataSources"`
	Notes                []string      `json:"notes,omitempty"`
}

// Filters are hard constraints applied before any free-text resolution.
// MinStake is expressed in thousands of USD of pool TVL.
type Filters struct {
	MinAPY   *float64 `json:"minApy,omitempty"`
	MinStake *float64 `json:"minStake,omitempty"`
	Limit    *int     `json:"limit,omitempty"`
}

func (f Filters) Empty() bool {
	return f.MinAPY == nil && f.MinStake == nil && f.Limit == nil
}

type Query struct {
	Text    string  `json:"text,omitempty"`
	Filters Filters `json:"filters,omitempty"`
	// Strategy names the scoring strategy used to rank matches ("global" or
	// "local"). Empty uses the service default.
	Strategy string `json:"strategy,omitempty"`
}

// ResolutionKind names the outcome of resolving a query against a candidate set.
type ResolutionKind string

const (
	KindMatchedProvider     ResolutionKind = "matchedProvider"
	KindFilteredSet         ResolutionKind = "filteredSet"
	KindSafeRecommendations ResolutionKind = "safeRecommendations"
	KindRiskComparison      ResolutionKind = "riskComparison"
	KindNativeLeader        ResolutionKind = "nativeLeader"
	KindNoMatch             ResolutionKind = "noMatch"
)

type Resolution struct {
	Kind ResolutionKind `json:"kind"`
	// Provider is the extracted provider name, when one was extracted.
	Provider string `json:"provider,omitempty"`
	// Stage is the matcher stage that produced a provider match.
	Stage         string        `json:"stage,omitempty"`
	Opportunities []Opportunity `json:"opportunities"`
	Message       string        `json:"message"`
	Applied       []string      `json:"appliedFilters,omitempty"`
}

// QueryResult couples a resolution with the selections over its candidate set.
type QueryResult struct {
	Resolution Resolution     `json:"resolution"`
	Analysis   AnalysisResult `json:"analysis"`
}

// Recommendation is a human-readable rendering of one opportunity.
type Recommendation struct {
	Rank        int     `json:"rank"`
	Project     string  `json:"project"`
	Symbol      string  `json:"symbol"`
	SafetyScore float64 `json:"safetyScore"`
	Summary     string  `json:"summary"`
}

// Response is the caller-facing result of Recommend. Status is "success" or
// "error"; Code is set only on errors.
type Response struct {
	Status              string           `json:"status"`
	Message             string           `json:"message"`
	Code                string           `json:"code,omitempty"`
	Kind                ResolutionKind   `json:"kind,omitempty"`
	BestOverall         *Opportunity     `json:"bestOverall,omitempty"`
	BestByAPY           *Opportunity     `json:"bestByAPY,omitempty"`
	BestByRisk          *Opportunity     `json:"bestByRisk,omitempty"`
	BestByLiquidity     *Opportunity     `json:"bestByLiquidity,omitempty"`
	BestForSmallStakers *Opportunity     `json:"bestForSmallStakers,omitempty"`
	Opportunities       []Opportunity    `json:"opportunities,omitempty"`
	Recommendations     []Recommendation `json:"recommendations,omitempty"`
	AnalysisTimestamp   *time.Time       `json:"analysisTimestamp,omitempty"`
	DataSources         []string         `json:"dataSources,omitempty"`
}

// PlainText renders the message followed by each recommendation block.
func (r Response) PlainText() string {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "\n\n%d. %s", rec.Rank, rec.Summary)
	}
	return b.String()
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)
