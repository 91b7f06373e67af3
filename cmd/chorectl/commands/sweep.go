package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/chore-tracker/internal/config"
	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/queue"
	"github.com/benvon/chore-tracker/internal/workers"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewSweepCmd creates the sweep command
func NewSweepCmd() *cobra.Command {
	var (
		enqueue bool
		taskID  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Advance overdue autocomplete tasks",
		Long: "Advance every overdue autocomplete task now, or with --enqueue publish a sweep job " +
			"for the worker. --task limits the sweep to one task.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var id *uuid.UUID
			if taskID != "" {
				parsed, err := uuid.Parse(taskID)
				if err != nil {
					return fmt.Errorf("--task must be a UUID: %w", err)
				}
				id = &parsed
			}

			log, err := logger.NewCLILogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync(log) }()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if enqueue {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				if err := cfg.RequireQueue(); err != nil {
					return err
				}
				q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, log)
				if err != nil {
					return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
				}
				defer func() { _ = q.Close() }()

				job := queue.NewSweepJob(cfg.Now(), 0)
				if id != nil {
					job = queue.NewTaskJob(*id, cfg.Now())
				}
				if err := q.Enqueue(ctx, job); err != nil {
					return fmt.Errorf("failed to enqueue job: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s job %s\n", job.Type, job.ID)
				return nil
			}

			cfg, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			advancer := workers.NewAdvancer(database.NewTaskRepository(db), log)
			if id != nil {
				task, changed, err := advancer.AdvanceTask(ctx, *id, cfg.Now())
				if err != nil {
					return fmt.Errorf("failed to advance task: %w", err)
				}
				if !changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Task %s is not overdue\n", task.Name)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Advanced %s\n", task.Name)
				return nil
			}

			advanced, err := advancer.Sweep(ctx, cfg.Now())
			if err != nil {
				return fmt.Errorf("sweep failed after advancing %d tasks: %w", advanced, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Advanced %d tasks\n", advanced)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Publish a job for the worker instead of sweeping directly")
	cmd.Flags().StringVar(&taskID, "task", "", "Only advance this task")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")

	return cmd
}
