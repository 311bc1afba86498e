package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/latticekg/lattice/internal/app"
	"github.com/latticekg/lattice/internal/queue"
	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	a, err := app.InitFromEnv(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize application", "err", err)
	}
	defer a.Close()

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.IndexQueue}); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one indexing job
	// runs at a time; parallelism lives inside the pipeline.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.IndexQueue,
		queue.IndexQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IndexQueue, "err", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.IndexQueue)
					return
				}

				startTime := time.Now()
				logger.Info("Received message", "queue", queue.IndexQueue)

				if err := queue.ProcessIndexMessage(ctx, a.Pipeline, msg.Body); err != nil {
					logger.Error("Error processing message", "queue", queue.IndexQueue, "err", err)
					queue.HandleProcessingError(consumerCh, msg, queue.IndexQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.IndexQueue)
				}

				logger.Info("Processing time", "duration", time.Since(startTime).Round(time.Second).String())
				logger.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}
