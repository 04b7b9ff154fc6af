package usecase

import (
	"context"
	"time"
)

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

// HealthProbe reports one dependency. A nil error means "ok".
type HealthProbe func(ctx context.Context) error

type healthUsecase struct {
	probes map[string]HealthProbe
}

func NewHealthUsecase(probes map[string]HealthProbe) HealthUsecase {
	return &healthUsecase{probes: probes}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	out := map[string]string{"status": "ok"}
	for name, probe := range u.probes {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := probe(pctx)
		cancel()
		if err != nil {
			out[name] = "unavailable: " + err.Error()
			out["status"] = "degraded"
			continue
		}
		out[name] = "ok"
	}
	return out
}
