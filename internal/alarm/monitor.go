package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/model"
)

// Alarm durumları
const (
	StatusTriggered = "triggered"
	StatusResolved  = "resolved"
)

var alarmEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ax_quickfix",
	Subsystem: "alarm",
	Name:      "events_total",
	Help:      "Alarm events raised by the background refresh",
}, []string{"status", "severity"})

// Analyzer is the part of the engine the monitor drives.
type Analyzer interface {
	Analyze(ctx context.Context) model.AnalysisResult
}

// AlarmEvent yüksek öncelikli bir düzeltme için tetiklenen veya çözülen alarm
type AlarmEvent struct {
	ID        string
	AlarmID   string
	Status    string
	Severity  string
	FixKind   model.FixKind
	ObjectID  string
	Message   string
	Timestamp time.Time
}

// AlarmMonitor analizi periyodik olarak yenileyen ve yeni kritik bulguları raporlayan birim
type AlarmMonitor struct {
	engine         Analyzer
	stopCh         chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	alarmCache     map[string]*AlarmEvent // Tetiklenmiş alarmları saklar
	alarmCacheLock sync.RWMutex
	checkInterval  time.Duration
	onResult       func(model.AnalysisResult)
	onEvent        func(AlarmEvent)
	log            *logger.Scoped
}

// NewAlarmMonitor yeni bir alarm monitörü oluşturur
func NewAlarmMonitor(engine Analyzer) *AlarmMonitor {
	return &AlarmMonitor{
		engine:        engine,
		stopCh:        make(chan struct{}),
		alarmCache:    make(map[string]*AlarmEvent),
		checkInterval: 5 * time.Minute, // Varsayılan kontrol aralığı önbellek süresi kadar
		log:           logger.Named("alarm"),
	}
}

// SetCheckInterval alarm kontrol aralığını değiştirir. Start'tan önce çağrılmalıdır.
func (m *AlarmMonitor) SetCheckInterval(interval time.Duration) {
	if interval > 0 {
		m.checkInterval = interval
	}
}

// OnResult registers a callback invoked after every refresh.
func (m *AlarmMonitor) OnResult(fn func(model.AnalysisResult)) {
	m.onResult = fn
}

// OnEvent registers a callback invoked for every triggered or resolved alarm.
func (m *AlarmMonitor) OnEvent(fn func(AlarmEvent)) {
	m.onEvent = fn
}

// Start alarm kontrol işlemini başlatır
func (m *AlarmMonitor) Start() {
	m.wg.Add(1)
	go m.monitorLoop()
	m.log.Info("Alarm monitörü başlatıldı (aralık %s)", m.checkInterval)
}

// Stop alarm kontrol işlemini durdurur ve devam eden kontrolün bitmesini bekler
func (m *AlarmMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	m.log.Info("Alarm monitörü durduruldu")
}

// monitorLoop periyodik olarak analizi yeniler
func (m *AlarmMonitor) monitorLoop() {
	defer m.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	// Hemen ilk kontrolü yap
	m.Check(ctx)

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-m.stopCh:
			return
		}
	}
}

// Check runs one analysis and reconciles alarms with its result.
func (m *AlarmMonitor) Check(ctx context.Context) []AlarmEvent {
	result := m.engine.Analyze(ctx)
	if m.onResult != nil {
		defer m.onResult(result)
	}

	if !result.Success {
		// Başarısız çalışma mevcut alarmları çözmez
		m.log.Warning("Analiz başarısız, alarmlar güncellenmedi: %s", result.Error)
		return nil
	}

	seen := make(map[string]bool)
	var events []AlarmEvent

	for _, fix := range result.Fixes {
		if fix.Priority < model.PriorityHigh {
			continue
		}
		key := alarmKey(fix)
		seen[key] = true

		m.alarmCacheLock.RLock()
		_, exists := m.alarmCache[key]
		m.alarmCacheLock.RUnlock()
		if exists {
			// Alarm zaten tetiklenmiş, tekrar gönderme
			continue
		}

		event := AlarmEvent{
			ID:        uuid.New().String(),
			AlarmID:   key,
			Status:    StatusTriggered,
			Severity:  fix.Priority.String(),
			FixKind:   fix.Kind,
			ObjectID:  fix.RelatedObjectID,
			Message:   fix.Title,
			Timestamp: result.Timestamp,
		}
		m.alarmCacheLock.Lock()
		m.alarmCache[key] = &event
		m.alarmCacheLock.Unlock()

		m.reportAlarm(event)
		events = append(events, event)
	}

	m.alarmCacheLock.Lock()
	var resolved []AlarmEvent
	for key, prev := range m.alarmCache {
		if seen[key] {
			continue
		}
		delete(m.alarmCache, key)
		resolved = append(resolved, AlarmEvent{
			ID:        uuid.New().String(),
			AlarmID:   key,
			Status:    StatusResolved,
			Severity:  "info",
			FixKind:   prev.FixKind,
			ObjectID:  prev.ObjectID,
			Message:   prev.Message,
			Timestamp: result.Timestamp,
		})
	}
	m.alarmCacheLock.Unlock()

	for _, event := range resolved {
		m.reportAlarm(event)
	}
	return append(events, resolved...)
}

// Active returns the currently triggered alarms.
func (m *AlarmMonitor) Active() []AlarmEvent {
	m.alarmCacheLock.RLock()
	defer m.alarmCacheLock.RUnlock()

	out := make([]AlarmEvent, 0, len(m.alarmCache))
	for _, e := range m.alarmCache {
		out = append(out, *e)
	}
	return out
}

// reportAlarm alarm olayını loglar ve sayacı artırır
func (m *AlarmMonitor) reportAlarm(event AlarmEvent) {
	alarmEvents.WithLabelValues(event.Status, event.Severity).Inc()

	if event.Status == StatusTriggered {
		m.log.Warning("ALARM [%s] %s: %s (ID: %s)", event.Severity, event.AlarmID, event.Message, event.ID)
	} else {
		m.log.Info("Alarm çözüldü %s: %s (ID: %s)", event.AlarmID, event.Message, event.ID)
	}

	if m.onEvent != nil {
		m.onEvent(event)
	}
}

// alarmKey aynı nesne için üretilen düzeltmeleri analizler arasında eşler
func alarmKey(fix model.Fix) string {
	object := fix.RelatedObjectID
	if object == "" {
		object = fix.Title
	}
	return string(fix.Kind) + ":" + object
}
