package main

import (
	"context"
	"os"
	"time"

	"github.com/spinscribe/spinscribe/pkg/agents"
	"github.com/spinscribe/spinscribe/pkg/cmd"
	"github.com/spinscribe/spinscribe/pkg/coordination"
	"github.com/spinscribe/spinscribe/pkg/engine"
	"github.com/spinscribe/spinscribe/pkg/log"
	"github.com/spinscribe/spinscribe/pkg/otelhelper"
	"github.com/spinscribe/spinscribe/pkg/queue"
	"github.com/spinscribe/spinscribe/pkg/schedule"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "spinscribe-api",
		Usage:                 "Run content workflow executions and manage review checkpoints",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "checkpoint-store-url",
				Usage:   "Checkpoint store URL (postgres://... or a directory path)",
				Value:   "./data/checkpoints",
				Sources: cli.EnvVars("CHECKPOINT_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "coordination",
				Usage:   "Enable the coordinated execution path",
				Value:   true,
				Sources: cli.EnvVars("COORDINATION_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "intake-redis-addr",
				Usage:   "Redis address for the workflow intake queue (empty disables intake)",
				Sources: cli.EnvVars("INTAKE_REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "intake-queue",
				Usage:   "Redis list name for the workflow intake queue",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("INTAKE_QUEUE"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "Scheduler pause between idle cycles",
				Value:   5 * time.Second,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "task-interval",
				Usage:   "Scheduler pause after each executed task",
				Value:   1 * time.Second,
				Sources: cli.EnvVars("TASK_INTERVAL"),
			},
			&cli.StringSliceFlag{
				Name:    "recurring",
				Usage:   "Recurring workflow as id|cron|workflow_type[|project_id[|chat_id[|title]]] (repeatable)",
				Sources: cli.EnvVars("RECURRING_WORKFLOWS"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Enable OpenTelemetry tracing of workflow executions",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing SpinScribe API")

			registry := cmd.NewRegistry(logger)

			checkpoints, err := cmd.NewCheckpointStore(ctx, logger, command.String("checkpoint-store-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := checkpoints.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close checkpoint store", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var coordinator coordination.Service
			if command.Bool("coordination") {
				coordinator = coordination.NewSimulatedService(logger)
			}

			var tracer trace.Tracer

			if command.Bool("otel") {
				tracer, err = otelhelper.NewTracer(ctx, "spinscribe-api")
				if err != nil {
					return err
				}
			}

			eng := engine.NewEngine(engine.Config{
				Logger:       logger,
				Registry:     registry,
				Coordinator:  coordinator,
				Runner:       agents.NewSimulatedRunner(logger),
				Publisher:    eventBus,
				Checkpoints:  checkpoints,
				Tracer:       tracer,
				PollInterval: command.Duration("poll-interval"),
				TaskInterval: command.Duration("task-interval"),
			})

			if addr := command.String("intake-redis-addr"); addr != "" {
				consumer, err := queue.NewConsumer(eng, addr, "", 0, command.String("intake-queue"), logger)
				if err != nil {
					return err
				}

				if err := consumer.Start(ctx); err != nil {
					return err
				}

				defer func() {
					if err := consumer.Stop(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to stop intake consumer", "error", err)
					}
				}()
			}

			if specs := command.StringSlice("recurring"); len(specs) > 0 {
				scheduler := schedule.NewScheduler(eng, logger)

				for _, spec := range specs {
					entry, err := schedule.ParseEntry(spec)
					if err != nil {
						return err
					}

					if err := scheduler.Add(entry); err != nil {
						return err
					}
				}

				if err := scheduler.Start(ctx); err != nil {
					return err
				}

				defer func() {
					if err := scheduler.Stop(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to stop scheduler", "error", err)
					}
				}()
			}

			api := NewAPI(logger, eng, registry, checkpoints)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
