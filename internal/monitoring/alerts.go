package monitoring

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/pkg/metrics"
)

// maxAlerts caps the in-memory alert list; the oldest entries are pruned.
const maxAlerts = 1000

// ErrAlertNotFound is returned when resolving an unknown alert ID.
var ErrAlertNotFound = errors.New("alert not found")

// AlertSeverity orders alert importance.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert records a threshold breach or failure, held in memory until resolved.
type Alert struct {
	ID         uuid.UUID     `json:"id"`
	Type       string        `json:"type"`
	Severity   AlertSeverity `json:"severity"`
	Title      string        `json:"title"`
	Message    string        `json:"message"`
	Timestamp  time.Time     `json:"timestamp"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// AlertFilter narrows Alerts queries; zero values match everything.
type AlertFilter struct {
	Severity       AlertSeverity
	Type           string
	UnresolvedOnly bool
}

// AlertService keeps the capped in-memory alert list.
type AlertService struct {
	logger *zap.Logger
	mu     sync.RWMutex
	alerts []*Alert
}

// NewAlertService creates an empty alert service.
func NewAlertService(logger *zap.Logger) *AlertService {
	return &AlertService{
		logger: logger.Named("alerts"),
	}
}

// Raise records a new alert and logs it at a level matching its severity.
func (a *AlertService) Raise(alertType string, severity AlertSeverity, title, message string) *Alert {
	alert := &Alert{
		ID:        uuid.New(),
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}

	a.mu.Lock()
	a.alerts = append(a.alerts, alert)
	if len(a.alerts) > maxAlerts {
		a.alerts = a.alerts[len(a.alerts)-maxAlerts:]
	}
	a.mu.Unlock()

	fields := []zap.Field{
		zap.String("alert_id", alert.ID.String()),
		zap.String("type", alertType),
		zap.String("title", title),
	}
	switch severity {
	case SeverityCritical:
		a.logger.Error(message, fields...)
	case SeverityWarning:
		a.logger.Warn(message, fields...)
	default:
		a.logger.Info(message, fields...)
	}

	a.updateGauges()
	return alert
}

// Alerts returns alerts matching the filter, newest first.
func (a *AlertService) Alerts(filter AlertFilter) []*Alert {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*Alert, 0, len(a.alerts))
	for i := len(a.alerts) - 1; i >= 0; i-- {
		alert := a.alerts[i]
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.Type != "" && alert.Type != filter.Type {
			continue
		}
		if filter.UnresolvedOnly && alert.Resolved {
			continue
		}
		copied := *alert
		out = append(out, &copied)
	}
	return out
}

// Resolve marks an alert resolved.
func (a *AlertService) Resolve(id uuid.UUID) error {
	a.mu.Lock()
	var found *Alert
	for _, alert := range a.alerts {
		if alert.ID == id {
			found = alert
			break
		}
	}
	if found == nil {
		a.mu.Unlock()
		return ErrAlertNotFound
	}
	if !found.Resolved {
		now := time.Now()
		found.Resolved = true
		found.ResolvedAt = &now
	}
	a.mu.Unlock()

	a.logger.Info("alert resolved", zap.String("alert_id", id.String()))
	a.updateGauges()
	return nil
}

// ActiveCount returns the number of unresolved alerts.
func (a *AlertService) ActiveCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	count := 0
	for _, alert := range a.alerts {
		if !alert.Resolved {
			count++
		}
	}
	return count
}

func (a *AlertService) updateGauges() {
	a.mu.RLock()
	counts := map[AlertSeverity]int{SeverityInfo: 0, SeverityWarning: 0, SeverityCritical: 0}
	for _, alert := range a.alerts {
		if !alert.Resolved {
			counts[alert.Severity]++
		}
	}
	a.mu.RUnlock()

	for severity, count := range counts {
		metrics.ActiveAlerts.WithLabelValues(string(severity)).Set(float64(count))
	}
}
