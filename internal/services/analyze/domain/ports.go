package domain

import "context"

// AnalyzerPort runs the fetch, score, persist pipeline for one login
type AnalyzerPort interface {
	Analyze(ctx context.Context, req Request) (AnalysisResult, error)
}
