package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	if s == nil || s.app == nil {
		status.Status = "down"
		status.Components["app"] = "missing"
		return status
	}

	ps := s.app.Patterns()
	status.Components["patterns"] = fmt.Sprintf("ok (%d includes, %d excludes)", len(ps.Includes()), len(ps.Excludes()))

	if s.app.Config.History.Enabled {
		if s.app.store == nil {
			status.Status = "degraded"
			status.Components["history"] = "missing but enabled in config"
		} else {
			status.Components["history"] = "ok"
		}
	}

	if last, ok := s.app.LastResult(); ok {
		status.Components["last_run"] = fmt.Sprintf("ok (%d public, %d internal)", last.Surface.Public, last.Surface.Internal)
	} else {
		status.Components["last_run"] = "pending"
	}

	return status
}
