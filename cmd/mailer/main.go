// Mailer consumes queued email jobs from the "emails" topic and dispatches
// them. Rendering happens here; actual SMTP delivery sits behind Dispatch so
// the transport can be swapped without touching the worker loop.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"

	"github.com/akulikov/webshop/internal/config"
	"github.com/akulikov/webshop/internal/emails"
	"github.com/akulikov/webshop/internal/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{configuration.KAFKA_ADDRESS},
		GroupID: "mailer",
		Topic:   emails.Topic,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("mailer worker started", "topic", emails.Topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("mailer worker stopped")
				return
			}
			logger.Error("read message error", "error", err)
			continue
		}

		var job emails.Job
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			logger.Error("bad job payload", "error", err)
			continue
		}

		subject, body := render(job)
		dispatch(logger, job, subject, body)
	}
}

func render(job emails.Job) (subject, body string) {
	switch job.Type {
	case emails.JobResetPassword:
		return "Reset your password",
			fmt.Sprintf("We have received your request to reset your password.\n\nPlease use the following key to reset your password: %s", job.ResetKey)
	case emails.JobChangedPassword:
		return "Password change notification", "Your password has been changed."
	case emails.JobProductInStock:
		return fmt.Sprintf("%s is back in stock", job.Name),
			fmt.Sprintf("The product %s is back in stock.", job.Name)
	default:
		return "", ""
	}
}

func dispatch(logger *slog.Logger, job emails.Job, subject, body string) {
	if subject == "" {
		logger.Warn("unknown job type", "type", job.Type)
		return
	}
	// Delivery transport is environment-specific; the worker logs the send.
	logger.Info("email dispatched", "to", job.Email, "subject", subject, "bytes", len(body))
}
