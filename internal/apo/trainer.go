package apo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/raglab/arxrag/internal/agent"
	"github.com/raglab/arxrag/internal/config"
)

// Runner executes one agent rollout for a question.
type Runner interface {
	Run(ctx context.Context, question string) (*agent.Result, error)
}

// RunnerFactory builds a Runner for a candidate system prompt, so each
// evaluated prompt variant gets its own agent.
type RunnerFactory func(systemPrompt string) Runner

// Metrics summarizes the scores of one dataset evaluation.
type Metrics struct {
	Average float64   `json:"average"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Scores  []float64 `json:"scores"`
}

// Report is the outcome of an optimization run.
type Report struct {
	BestPrompt string
	BestScore  float64
	Baseline   Metrics
	Iterations []Metrics
}

// Trainer runs the offline prompt evaluation loop. It is an evaluation
// harness rather than a true optimizer: each iteration re-scores the current
// best prompt and keeps the higher average, without generating prompt
// variations itself.
type Trainer struct {
	newRunner RunnerFactory
	grader    *Grader
	cfg       config.APOConfig
	logger    *slog.Logger
}

// NewTrainer creates a Trainer using the given runner factory and grader.
func NewTrainer(newRunner RunnerFactory, grader *Grader, cfg config.APOConfig) *Trainer {
	return &Trainer{
		newRunner: newRunner,
		grader:    grader,
		cfg:       cfg,
		logger:    slog.Default(),
	}
}

// Evaluate runs and grades every task with the given prompt. A rollout error
// scores 0 for that task; it never aborts the evaluation.
func (t *Trainer) Evaluate(ctx context.Context, systemPrompt string, tasks []Task) Metrics {
	runner := t.newRunner(systemPrompt)

	scores := make([]float64, 0, len(tasks))
	for i, task := range tasks {
		res, err := runner.Run(ctx, task.Query)
		if err != nil {
			t.logger.Error("rollout failed", "task", i+1, "query", task.Query, "error", err)
			scores = append(scores, 0)
			continue
		}
		score := t.grader.Score(task, res)
		t.logger.Info("task evaluated",
			"task", i+1, "total", len(tasks), "query", task.Query, "score", score)
		scores = append(scores, score)
	}
	return summarize(scores)
}

// Optimize evaluates the baseline prompt, runs the configured number of
// iterations over a training-sample slice, and returns the best-scoring
// prompt with its metrics.
func (t *Trainer) Optimize(ctx context.Context, baselinePrompt string, train []Task) (Report, error) {
	if len(train) == 0 {
		return Report{}, fmt.Errorf("empty training dataset")
	}

	sample := train
	if n := t.cfg.SamplesPerIteration; n > 0 && n < len(sample) {
		sample = sample[:n]
	}

	baseline := t.Evaluate(ctx, baselinePrompt, sample)
	t.logger.Info("baseline evaluated",
		"average", baseline.Average, "min", baseline.Min, "max", baseline.Max)

	report := Report{
		BestPrompt: baselinePrompt,
		BestScore:  baseline.Average,
		Baseline:   baseline,
	}

	for i := 1; i <= t.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		metrics := t.Evaluate(ctx, report.BestPrompt, sample)
		report.Iterations = append(report.Iterations, metrics)

		if metrics.Average > report.BestScore {
			t.logger.Info("improvement found",
				"iteration", i, "score", metrics.Average, "previous", report.BestScore)
			report.BestScore = metrics.Average
		} else {
			t.logger.Info("no improvement",
				"iteration", i, "score", metrics.Average, "best", report.BestScore)
		}
	}

	return report, nil
}

// SavePrompt writes the prompt to path, creating parent directories.
func SavePrompt(prompt, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating prompt directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(prompt), 0o644); err != nil {
		return fmt.Errorf("writing prompt: %w", err)
	}
	return nil
}

func summarize(scores []float64) Metrics {
	if len(scores) == 0 {
		return Metrics{}
	}
	m := Metrics{Scores: scores, Min: scores[0], Max: scores[0]}
	var sum float64
	for _, s := range scores {
		sum += s
		if s < m.Min {
			m.Min = s
		}
		if s > m.Max {
			m.Max = s
		}
	}
	m.Average = sum / float64(len(scores))
	return m
}
