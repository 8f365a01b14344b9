package services

import (
	"os"
	"sync"

	"github.com/AtRiskMedia/diagram-go/internal/domain/entities/diagram"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/pkg/config"
)

// AlertService sends a one-shot sysop email when engine acquisition fails.
// Only the first failure per process triggers an email; later failures are
// logged on the engine channel instead.
type AlertService struct {
	emailService email.Service
	logger       *logging.ChanneledLogger
	once         sync.Once
}

// NewAlertService creates a new alert service. emailService may be nil when
// no email provider is configured; the service then only logs.
func NewAlertService(emailService email.Service, logger *logging.ChanneledLogger) *AlertService {
	return &AlertService{
		emailService: emailService,
		logger:       logger,
	}
}

// NotifyEngineFailure reports an engine acquisition failure to the sysop.
func (s *AlertService) NotifyEngineFailure(kind diagram.ErrorKind, err error) {
	s.logger.Engine().Error("Engine acquisition failed",
		"kind", string(kind), "error", err.Error())

	if s.emailService == nil || config.AlertEmailTo == "" {
		return
	}

	s.once.Do(func() {
		host, hostErr := os.Hostname()
		if hostErr != nil {
			host = "unknown"
		}

		if sendErr := s.emailService.SendEngineAlert(
			config.AlertEmailTo, string(kind), err.Error(), host,
		); sendErr != nil {
			s.logger.Alert().Error("Failed to send engine alert email",
				"error", sendErr.Error())
			return
		}

		s.logger.Alert().Info("Engine alert email sent",
			"to", config.AlertEmailTo, "kind", string(kind))
	})
}
