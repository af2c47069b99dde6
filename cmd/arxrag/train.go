package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raglab/arxrag/internal/agent"
	"github.com/raglab/arxrag/internal/apo"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the offline prompt evaluation loop and save the best prompt",
	Long: `Run the offline prompt evaluation loop and save the best prompt.

Each training task runs the agent end to end and grades the transcript;
the best-scoring prompt is written to the optimized prompt path
(APO_OPTIMIZED_PROMPT_PATH).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		validate, _ := cmd.Flags().GetBool("validate")
		return runTrain(validate)
	},
}

func init() {
	trainCmd.Flags().Bool("validate", false, "also evaluate the best prompt on the validation set")
}

func runTrain(validate bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tools := a.toolset()
	factory := func(systemPrompt string) apo.Runner {
		return agent.New(a.chat, tools, systemPrompt)
	}

	trainer := apo.NewTrainer(factory, apo.NewGrader(), a.cfg.APO)
	train := apo.TrainingTasks()

	printStep("evaluating baseline prompt (%d iterations, %d samples each)",
		a.cfg.APO.Iterations, a.cfg.APO.SamplesPerIteration)

	report, err := trainer.Optimize(ctx, agent.BaselinePrompt, train)
	if err != nil {
		printError("optimization failed: %v", err)
		return err
	}

	printStatus("Baseline", "avg %.3f (min %.3f, max %.3f)",
		report.Baseline.Average, report.Baseline.Min, report.Baseline.Max)
	for i, m := range report.Iterations {
		printStatus("Iteration", "%d: avg %.3f (min %.3f, max %.3f)", i+1, m.Average, m.Min, m.Max)
	}
	printStatus("Best score", "%.3f", report.BestScore)

	if validate {
		printStep("evaluating on validation set")
		metrics := trainer.Evaluate(ctx, report.BestPrompt, apo.ValidationTasks())
		printStatus("Validation", "avg %.3f (min %.3f, max %.3f)",
			metrics.Average, metrics.Min, metrics.Max)
	}

	path := a.cfg.APO.OptimizedPromptPath
	if err := apo.SavePrompt(report.BestPrompt, path); err != nil {
		printError("saving prompt: %v", err)
		return err
	}
	printSuccess("Best prompt saved to %s", path)
	return nil
}
