package audit

import (
	"context"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/pkg/logger"
)

const logSink = "log"

// LogAuditService writes audit events to the structured log.
type LogAuditService struct {
	metrics service.Metrics
	logger  logger.Logger
}

// NewLogAuditService creates an AuditService backed by log.
func NewLogAuditService(metrics service.Metrics, log logger.Logger) *LogAuditService {
	return &LogAuditService{metrics: metrics, logger: log.WithComponent("audit")}
}

// LogLoginEvent implements service.AuditService.
func (s *LogAuditService) LogLoginEvent(ctx context.Context, event *models.LoginAuditEvent) error {
	s.logger.Info(ctx, "login audit",
		logger.String("event_id", event.EventID.String()),
		logger.String("username", event.Username),
		logger.String("subject", event.Subject),
		logger.String("outcome", string(event.Outcome)),
		logger.Time("timestamp", event.Timestamp),
	)
	s.metrics.RecordAuditPublish(logSink, nil)
	return nil
}

// NewAuditService picks the Kafka producer when cfg.Enabled and the log sink otherwise.
// The returned close function is never nil.
func NewAuditService(cfg *config.KafkaConfig, metrics service.Metrics, log logger.Logger) (service.AuditService, func() error) {
	if cfg.Enabled {
		p := NewKafkaProducer(cfg, metrics, log)
		return p, p.Close
	}
	return NewLogAuditService(metrics, log), func() error { return nil }
}
