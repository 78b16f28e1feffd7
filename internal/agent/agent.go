package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/alarm"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/analyzer"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/collector/platform"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/config"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/quickfix"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/pkg/utils"
)

// HealthService gRPC health kontrolünde kullanılan servis adı
const HealthService = "quickfix"

// Agent servis modunda analiz yenileme, health ve metrics uç noktalarını yönetir
type Agent struct {
	cfg     *config.AgentConfig
	backend collector.Backend
	engine  *quickfix.Engine
	monitor *alarm.AlarmMonitor

	health        *health.Server
	grpcServer    *grpc.Server
	grpcListener  net.Listener
	metricsServer *http.Server
	metricsLn     net.Listener

	stopOnce sync.Once
	log      *logger.Scoped
}

// NewAgent yeni bir Agent örneği oluşturur. Veritabanı bağlantısı ilk analizde açılır.
func NewAgent(cfg *config.AgentConfig) (*Agent, error) {
	backend, err := platform.Open(cfg)
	if err != nil {
		return nil, err
	}
	return newWithBackend(cfg, backend), nil
}

func newWithBackend(cfg *config.AgentConfig, backend collector.Backend) *Agent {
	engine := quickfix.New(
		analyzer.Defaults(backend, cfg.QuickFix),
		backend,
		quickfix.NewResultCache(cfg.QuickFix.CacheTTL(), nil),
		quickfix.NewJournal(),
		quickfix.ConfigFrom(cfg.QuickFix),
	)

	a := &Agent{
		cfg:     cfg,
		backend: backend,
		engine:  engine,
		monitor: alarm.NewAlarmMonitor(engine),
		health:  health.NewServer(),
		log:     logger.Named("agent"),
	}
	a.monitor.SetCheckInterval(cfg.RefreshInterval())
	a.monitor.OnResult(a.updateHealth)
	return a
}

// Engine returns the quick-fix engine of the agent.
func (a *Agent) Engine() *quickfix.Engine {
	return a.engine
}

// Start opens the health and metrics listeners and starts the background refresh.
func (a *Agent) Start() error {
	a.log.Info("Agent başlatılıyor: %s (%s) host %s [%s] %s",
		a.cfg.Name, a.backend.Platform(), utils.GetHostname(), utils.GetLocalIP(), utils.GetPlatformInfo())

	// İlk analiz bitene kadar servis hazır değil
	a.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if addr := a.cfg.Service.HealthAddress; addr != "" {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("health portu dinlenemedi %s: %w", addr, err)
		}
		a.grpcListener = listener
		a.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(a.grpcServer, a.health)

		go func() {
			if err := a.grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				a.log.Error("gRPC health sunucusu hatası: %v", err)
			}
		}()
		a.log.Info("gRPC health sunucusu dinliyor: %s", listener.Addr())
	}

	if addr := a.cfg.Service.MetricsAddress; addr != "" {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			a.stopServers()
			return fmt.Errorf("metrics portu dinlenemedi %s: %w", addr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metricsLn = listener
		a.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := a.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Metrics sunucusu hatası: %v", err)
			}
		}()
		a.log.Info("Metrics sunucusu dinliyor: %s", listener.Addr())
	}

	a.monitor.Start()
	a.log.Info("Agent başarıyla başlatıldı: %s", a.cfg.Name)
	return nil
}

// Stop agent'ı durdurur. Birden fazla çağrılabilir.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		a.log.Info("Agent durduruluyor: %s", a.cfg.Name)
		a.monitor.Stop()
		a.health.Shutdown()
		a.stopServers()

		if err := a.backend.Close(); err != nil {
			a.log.Warning("Veritabanı bağlantısı kapatılamadı: %v", err)
		}
	})
}

func (a *Agent) stopServers() {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.log.Warning("Metrics sunucusu kapatılamadı: %v", err)
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
}

// HealthAddr returns the bound health address, empty when disabled.
func (a *Agent) HealthAddr() string {
	if a.grpcListener == nil {
		return ""
	}
	return a.grpcListener.Addr().String()
}

// MetricsAddr returns the bound metrics address, empty when disabled.
func (a *Agent) MetricsAddr() string {
	if a.metricsLn == nil {
		return ""
	}
	return a.metricsLn.Addr().String()
}

func (a *Agent) updateHealth(result model.AnalysisResult) {
	status := healthpb.HealthCheckResponse_SERVING
	if !result.Success {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	a.health.SetServingStatus(HealthService, status)
}
