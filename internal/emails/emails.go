package emails

import (
	"context"
	"time"

	"github.com/akulikov/webshop/internal/logging"
)

const Topic = "emails"

const (
	JobResetPassword   = "resetPassword"
	JobChangedPassword = "changedPassword"
	JobProductInStock  = "productInStock"
)

type Job struct {
	Type     string `json:"type"`
	Email    string `json:"email,omitempty"`
	ResetKey string `json:"reset_key,omitempty"`
	Name     string `json:"name,omitempty"`
}

type publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

// Service queues email jobs for the mailer worker. Sends are fire-and-forget:
// a publish failure is logged, never surfaced to the caller.
type Service struct {
	Producer publisher
}

func (s *Service) SendPasswordResetEmail(ctx context.Context, email, resetKey string) {
	s.enqueue(ctx, Job{Type: JobResetPassword, Email: email, ResetKey: resetKey})
}

func (s *Service) SendChangedPasswordEmail(ctx context.Context, email string) {
	s.enqueue(ctx, Job{Type: JobChangedPassword, Email: email})
}

// SendProductInStockEmail queues a restock notification job; the mailer
// worker resolves the recipients.
func (s *Service) SendProductInStockEmail(ctx context.Context, name string) {
	s.enqueue(ctx, Job{Type: JobProductInStock, Name: name})
}

func (s *Service) enqueue(ctx context.Context, job Job) {
	if s == nil || s.Producer == nil {
		return
	}
	l := logging.FromContext(ctx)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.Producer.PublishEvent(pubCtx, Topic, job.Email, job); err != nil {
		l.Error("email_enqueue_error", "job", job.Type, "error", err)
		return
	}
	l.Info("email_enqueued", "job", job.Type)
}
