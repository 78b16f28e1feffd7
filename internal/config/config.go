package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultConfigFile = "quickfix.yml"

// Desteklenen platformlar
const (
	PlatformMSSQL    = "mssql"
	PlatformPostgres = "postgres"
	PlatformMongo    = "mongo"
)

// AgentConfig, Quick-Fix agent için konfigürasyon yapısı
type AgentConfig struct {
	// Temel Bilgiler
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Platform string `yaml:"platform"`

	// MSSQL Bağlantı Bilgileri
	MSSQL struct {
		Host        string `yaml:"host"`
		User        string `yaml:"user"`
		Pass        string `yaml:"pass"`
		Port        string `yaml:"port"`
		Instance    string `yaml:"instance"`
		Database    string `yaml:"database"`
		Auth        bool   `yaml:"-"` // Auth, dolaylı olarak belirlenir
		TrustCert   bool   `yaml:"trust_cert"`
		WindowsAuth bool   `yaml:"windows_auth"`
	} `yaml:"mssql"`

	// PostgreSQL Bağlantı Bilgileri
	PostgreSQL struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Pass     string `yaml:"pass"`
		Port     string `yaml:"port"`
		Database string `yaml:"database"`
		SSLMode  string `yaml:"sslmode"`
		Auth     bool   `yaml:"-"` // Auth, dolaylı olarak belirlenir
	} `yaml:"postgresql"`

	// MongoDB Bağlantı Bilgileri
	Mongo struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Pass     string `yaml:"pass"`
		Port     string `yaml:"port"`
		Replset  string `yaml:"replset"`
		Database string `yaml:"database"`
		Auth     bool   `yaml:"-"` // Auth, dolaylı olarak belirlenir
	} `yaml:"mongo"`

	QuickFix QuickFixConfig `yaml:"quickfix"`

	// Servis modu ayarları
	Service struct {
		RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
		HealthAddress          string `yaml:"health_address"`
		MetricsAddress         string `yaml:"metrics_address"`
		LogLevel               string `yaml:"log_level"`
	} `yaml:"service"`
}

// QuickFixConfig analiz motorunun zaman bütçesi, önbellek ve analyzer ayarları
type QuickFixConfig struct {
	DeadlineSeconds     int `yaml:"deadline_seconds"`
	CacheTTLSeconds     int `yaml:"cache_ttl_seconds"`
	TopK                int `yaml:"top_k"`
	ExpensiveQueryLimit int `yaml:"expensive_query_limit"`

	Analyzers AnalyzerConfig `yaml:"analyzers"`
}

// AnalyzerConfig tip başına üst sınırlar ve eşikler
type AnalyzerConfig struct {
	MissingIndexCap    int     `yaml:"missing_index_cap"`
	StaleStatisticsCap int     `yaml:"stale_statistics_cap"`
	BlockingQueryCap   int     `yaml:"blocking_query_cap"`
	HighCPUQueryCap    int     `yaml:"high_cpu_query_cap"`
	HighCPUThresholdMs float64 `yaml:"high_cpu_threshold_ms"`
	BlockingWaitRatio  float64 `yaml:"blocking_wait_ratio"`
}

// Deadline returns the analysis wall-clock budget.
func (q QuickFixConfig) Deadline() time.Duration {
	return time.Duration(q.DeadlineSeconds) * time.Second
}

// CacheTTL returns how long an analysis result stays valid.
func (q QuickFixConfig) CacheTTL() time.Duration {
	return time.Duration(q.CacheTTLSeconds) * time.Second
}

// RefreshInterval returns the background refresh period of service mode.
func (c *AgentConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Service.RefreshIntervalSeconds) * time.Second
}

// DefaultQuickFixConfig returns the engine defaults.
func DefaultQuickFixConfig() QuickFixConfig {
	return QuickFixConfig{
		DeadlineSeconds:     30,
		CacheTTLSeconds:     300,
		TopK:                10,
		ExpensiveQueryLimit: 50,
		Analyzers: AnalyzerConfig{
			MissingIndexCap:    3,
			StaleStatisticsCap: 2,
			BlockingQueryCap:   2,
			HighCPUQueryCap:    2,
			HighCPUThresholdMs: 5000,
			BlockingWaitRatio:  2,
		},
	}
}

// DefaultAgentConfig varsayılan agent konfigürasyonunu döndürür
func DefaultAgentConfig() *AgentConfig {
	config := &AgentConfig{}
	config.Key = "agent_key"
	config.Name = "QuickFix"
	config.Platform = PlatformMSSQL

	// MSSQL varsayılan ayarları
	config.MSSQL.Port = "1433"
	config.MSSQL.Database = "MicrosoftDynamicsAX"
	config.MSSQL.TrustCert = true

	// PostgreSQL varsayılan ayarları
	config.PostgreSQL.Port = "5432"
	config.PostgreSQL.Database = "postgres"
	config.PostgreSQL.SSLMode = "disable"

	// MongoDB varsayılan ayarları
	config.Mongo.Port = "27017"
	config.Mongo.Database = "admin"

	config.QuickFix = DefaultQuickFixConfig()

	config.Service.RefreshIntervalSeconds = 300
	config.Service.HealthAddress = "localhost:50061"
	config.Service.MetricsAddress = "localhost:9461"
	config.Service.LogLevel = "WARNING"

	return config
}

// LoadAgentConfig, agent konfigürasyonunu varsayılan konumdan yükler
func LoadAgentConfig() (*AgentConfig, error) {
	return LoadAgentConfigFrom(getConfigPath(DefaultConfigFile))
}

// LoadAgentConfigFrom, verilen dosyadan konfigürasyonu yükler. Dosya yoksa varsayılanı oluşturur.
func LoadAgentConfigFrom(configPath string) (*AgentConfig, error) {
	// Dosya var mı kontrol et
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Dosya yoksa varsayılan konfigürasyonu oluştur ve kaydet
		return createDefaultAgentConfig(configPath)
	}

	// Dosyayı oku
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("konfigürasyon dosyası okunamadı: %w", err)
	}

	// Boş alanlar varsayılan değerleri korur
	config := DefaultAgentConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("konfigürasyon dosyası ayrıştırılamadı: %w", err)
	}

	// Auth değerlerini belirle
	config.MSSQL.Auth = config.MSSQL.User != "" && config.MSSQL.Pass != "" && !config.MSSQL.WindowsAuth
	config.PostgreSQL.Auth = config.PostgreSQL.User != "" && config.PostgreSQL.Pass != ""
	config.Mongo.Auth = config.Mongo.User != "" && config.Mongo.Pass != ""

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate konfigürasyon değerlerini kontrol eder
func (c *AgentConfig) Validate() error {
	switch c.Platform {
	case PlatformMSSQL, PlatformPostgres, PlatformMongo:
	default:
		return fmt.Errorf("geçersiz platform %q: mssql, postgres veya mongo olmalı", c.Platform)
	}

	q := c.QuickFix
	positive := map[string]int{
		"quickfix.deadline_seconds":      q.DeadlineSeconds,
		"quickfix.cache_ttl_seconds":     q.CacheTTLSeconds,
		"quickfix.top_k":                 q.TopK,
		"quickfix.expensive_query_limit": q.ExpensiveQueryLimit,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}

	a := q.Analyzers
	if a.MissingIndexCap < 0 || a.StaleStatisticsCap < 0 || a.BlockingQueryCap < 0 || a.HighCPUQueryCap < 0 {
		return fmt.Errorf("quickfix.analyzers caps must not be negative")
	}
	if a.BlockingWaitRatio < 1 {
		return fmt.Errorf("quickfix.analyzers.blocking_wait_ratio must be at least 1, got %.2f", a.BlockingWaitRatio)
	}

	if c.Service.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("service.refresh_interval_seconds must not be negative")
	}

	return nil
}

// createDefaultAgentConfig, varsayılan agent konfigürasyonunu oluşturur
func createDefaultAgentConfig(configPath string) (*AgentConfig, error) {
	config := DefaultAgentConfig()

	// Konfigürasyonu YAML olarak dönüştür
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("varsayılan konfigürasyon oluşturulamadı: %w", err)
	}

	// Dizin yoksa oluştur
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("konfigürasyon dizini oluşturulamadı: %w", err)
	}

	// Dosyayı yaz (parolalar içerebileceği için sadece sahibi okuyabilir)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return nil, fmt.Errorf("konfigürasyon dosyası yazılamadı: %w", err)
	}

	log.Printf("Varsayılan konfigürasyon oluşturuldu: %s", configPath)
	return config, nil
}

// getConfigPath returns the absolute config file path based on OS.
func getConfigPath(filename string) string {
	// Windows: executable dir
	if runtime.GOOS == "windows" {
		exePath, err := os.Executable()
		if err == nil {
			winPath := filepath.Join(filepath.Dir(exePath), filename)
			if _, err := os.Stat(winPath); err == nil {
				log.Printf("Found config near executable: %s", winPath)
				return winPath
			}
		}
	}

	// Current dir
	if _, err := os.Stat(filename); err == nil {
		return filename
	}

	// Linux fallback
	etcPath := filepath.Join("/etc", "axoptimizer", filename)
	if _, err := os.Stat(etcPath); err == nil {
		log.Printf("Found config in: %s", etcPath)
		return etcPath
	}

	log.Printf("Config not found, fallback to working dir: %s", filename)
	return filename
}
