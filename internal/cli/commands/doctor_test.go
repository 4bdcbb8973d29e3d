package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name        string
		checks      []HealthCheck
		targetCount int
		minScore    int
		maxScore    int
	}{
		{
			name:        "no checks returns 100",
			checks:      nil,
			targetCount: 10,
			minScore:    100,
			maxScore:    100,
		},
		{
			name: "all passing returns 100",
			checks: []HealthCheck{
				{RuleID: "W001", Status: "pass", IssueCount: 0},
				{RuleID: "D001", Status: "pass", IssueCount: 0},
			},
			targetCount: 10,
			minScore:    100,
			maxScore:    100,
		},
		{
			name: "warnings reduce score",
			checks: []HealthCheck{
				{RuleID: "W003", Status: "pass", IssueCount: 0},
				{RuleID: "D002", Status: "warn", IssueCount: 2},
			},
			targetCount: 10,
			minScore:    80,
			maxScore:    100,
		},
		{
			name: "errors reduce score more",
			checks: []HealthCheck{
				{RuleID: "W001", Status: "error", IssueCount: 2},
			},
			targetCount: 10,
			minScore:    70,
			maxScore:    95,
		},
		{
			name: "more targets means less impact per issue",
			checks: []HealthCheck{
				{RuleID: "D002", Status: "warn", IssueCount: 5},
			},
			targetCount: 100,
			minScore:    90,
			maxScore:    100,
		},
		{
			name: "many issues can reduce to 0",
			checks: []HealthCheck{
				{RuleID: "W001", Status: "error", IssueCount: 20},
				{RuleID: "D001", Status: "error", IssueCount: 20},
			},
			targetCount: 5,
			minScore:    0,
			maxScore:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := calculateHealthScore(tt.checks, tt.targetCount)
			assert.GreaterOrEqual(t, score, tt.minScore, "score should be >= %d", tt.minScore)
			assert.LessOrEqual(t, score, tt.maxScore, "score should be <= %d", tt.maxScore)
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	tests := []struct {
		ruleID   string
		expected bool // whether a recommendation is returned
	}{
		{"W001", true},
		{"W002", true},
		{"W003", true},
		{"W004", true},
		{"W005", true},
		{"W006", true},
		{"D001", true},
		{"D002", true},
		{"D003", true},
		{"D004", true},
		{"D005", true},
		{"D006", true},
		{"config", true},
		{"state", true},
		{"lockfile", true},
		{"sources", true},
		{"docs", true},
		{"workspace", true},
		{"UNKNOWN", false},
	}

	for _, tt := range tests {
		t.Run(tt.ruleID, func(t *testing.T) {
			rec := getRecommendation(tt.ruleID)
			if tt.expected {
				assert.NotEmpty(t, rec, "expected recommendation for %s", tt.ruleID)
			} else {
				assert.Empty(t, rec, "expected no recommendation for %s", tt.ruleID)
			}
		})
	}
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: "W001", Status: "error", IssueCount: 1},
		{RuleID: "D002", Status: "warn", IssueCount: 2},
		{RuleID: "W003", Status: "pass", IssueCount: 0},
	}

	recommendations := generateRecommendations(checks)

	// Errors come first, warnings after
	assert.Len(t, recommendations, 2)
	assert.Contains(t, recommendations[0], "sha256")
	assert.Contains(t, recommendations[1], "undocumented")
}

func TestGenerateRecommendations_LimitTo5(t *testing.T) {
	ruleIDs := []string{"W001", "W002", "W003", "W004", "W005", "W006", "D001", "D002", "D003", "D004"}
	checks := make([]HealthCheck, len(ruleIDs))
	for i, ruleID := range ruleIDs {
		checks[i] = HealthCheck{RuleID: ruleID, Status: "warn", IssueCount: 1}
	}

	recommendations := generateRecommendations(checks)

	assert.LessOrEqual(t, len(recommendations), 5)
}

func TestGenerateRecommendations_Dedupes(t *testing.T) {
	// The same rule appearing at both severities yields one recommendation.
	checks := []HealthCheck{
		{RuleID: "W005", Status: "error", IssueCount: 1},
		{RuleID: "W005", Status: "warn", IssueCount: 3},
	}

	recommendations := generateRecommendations(checks)

	assert.Len(t, recommendations, 1)
}

func TestBuildDegradedOutput(t *testing.T) {
	out := buildDegradedOutput(errors.New("parse workspace: unexpected token"))

	assert.Equal(t, 0, out.Score)
	assert.Equal(t, 1, out.IssueCount)
	assert.NotEmpty(t, out.Recommendations)

	var workspaceCheck *HealthCheck
	for i := range out.HealthChecks {
		if out.HealthChecks[i].RuleID == "workspace" {
			workspaceCheck = &out.HealthChecks[i]
		}
	}
	if assert.NotNil(t, workspaceCheck, "expected a workspace environment check") {
		assert.Equal(t, "error", workspaceCheck.Status)
		assert.Contains(t, workspaceCheck.Details[0], "unexpected token")
	}
}

func TestHealthCheck_Struct(t *testing.T) {
	check := HealthCheck{
		RuleID:     "W001",
		Name:       "pinning.missing_checksum",
		Group:      "pinning",
		Status:     "pass",
		IssueCount: 0,
		Details:    nil,
	}

	assert.Equal(t, "W001", check.RuleID)
	assert.Equal(t, "pinning.missing_checksum", check.Name)
	assert.Equal(t, "pinning", check.Group)
	assert.Equal(t, "pass", check.Status)
	assert.Equal(t, 0, check.IssueCount)
}

func TestDoctorOutput_Struct(t *testing.T) {
	out := DoctorOutput{
		Summary: ProjectSummary{
			Dependencies: 10,
			GraphDepth:   3,
		},
		HealthChecks: []HealthCheck{
			{RuleID: "W001", Status: "pass"},
		},
		Score:           95,
		Recommendations: []string{"Fix something"},
		IssueCount:      1,
	}

	assert.Equal(t, 10, out.Summary.Dependencies)
	assert.Equal(t, 95, out.Score)
	assert.Len(t, out.HealthChecks, 1)
	assert.Len(t, out.Recommendations, 1)
}
