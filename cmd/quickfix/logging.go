package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
)

const (
	eventSource = "AXQuickFix"
	maxLogSize  = int64(100 * 1024 * 1024) // 100MB
	maxLogFiles = 5                        // Saklanacak maksimum log dosyası sayısı
)

// initLogging servis modunda logları Windows Event Log'a veya dosyaya yönlendirir
func initLogging() {
	if setupEventLog(eventSource) {
		return
	}

	exePath, err := os.Executable()
	if err != nil {
		log.Printf("Executable yolu alınamadı, stderr kullanılıyor: %v", err)
		return
	}
	if err := setupFileLogging(filepath.Dir(exePath), time.Now()); err != nil {
		log.Printf("Dosya log sistemi kurulamadı, stderr kullanılıyor: %v", err)
	}
}

// setupFileLogging opens quickfix.log in dir, rotating it when it grew too large.
func setupFileLogging(dir string, now time.Time) error {
	logFile := filepath.Join(dir, "quickfix.log")

	// Mevcut log dosyasının boyutunu kontrol et
	info, err := os.Stat(logFile)
	if err == nil && info.Size() > maxLogSize {
		// Rotasyon gerekli, tarihe göre eski dosyayı adlandır
		backupFile := filepath.Join(dir, fmt.Sprintf("quickfix_%s.log", now.Format("2006-01-02_15-04-05")))
		if err := os.Rename(logFile, backupFile); err != nil {
			log.Printf("Log rotasyonu yapılamadı: %v", err)
		} else {
			log.Printf("Log rotasyonu yapıldı: %s", backupFile)
		}

		cleanupOldLogs(dir, maxLogFiles)
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	// Standart log ve logger paketi aynı dosyaya yazar
	logger.SetOutput(f)
	logger.Info("Dosya log sistemi etkinleştirildi, log seviyesi: %s", logger.LevelToString(logger.GetLevel()))
	return nil
}

// cleanupOldLogs sadece en yeni keepCount rotasyon dosyasını tutar
func cleanupOldLogs(dir string, keepCount int) {
	matches, err := filepath.Glob(filepath.Join(dir, "quickfix_*.log"))
	if err != nil {
		log.Printf("Eski log dosyaları bulunamadı: %v", err)
		return
	}

	// Dosya adındaki zaman damgası sıralanabilir, en eskiler önce
	sort.Strings(matches)

	for i := 0; i < len(matches)-keepCount; i++ {
		if err := os.Remove(matches[i]); err != nil {
			log.Printf("Eski log dosyası silinemedi %s: %v", matches[i], err)
		}
	}
}
