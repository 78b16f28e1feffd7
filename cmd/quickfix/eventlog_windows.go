//go:build windows

package main

import (
	"log"
	"os"
	"strings"

	"golang.org/x/sys/windows/svc/eventlog"

	"github.com/rweisssieker-xp/AX-2012-Performce-Optimizer-sub001/internal/logger"
)

// setupEventLog logları Windows Event Log'a yönlendirir
func setupEventLog(sourceName string) bool {
	elog, err := eventlog.Open(sourceName)
	if err != nil {
		// EventLog kaynağı yoksa oluşturmayı dene
		err = eventlog.InstallAsEventCreate(sourceName, eventlog.Info|eventlog.Warning|eventlog.Error)
		if err != nil {
			// Yüksek yetkiler gerektirebilir, başarısız olursa dosya loguna geri dön
			log.Printf("Windows Event Log kurulumu başarısız: %v, dosya loguna dönülüyor", err)
			return false
		}

		elog, err = eventlog.Open(sourceName)
		if err != nil {
			log.Printf("Windows Event Log açılamadı: %v, dosya loguna dönülüyor", err)
			return false
		}
	}

	logger.SetOutput(&eventLogWriter{elog: elog})
	logger.Info("Windows Event Log etkinleştirildi, log seviyesi: %s", logger.LevelToString(logger.GetLevel()))
	return true
}

// eventLogWriter satırları seviyelerine göre Event Log'a yazar
type eventLogWriter struct {
	elog *eventlog.Log
}

func (w *eventLogWriter) Write(p []byte) (n int, err error) {
	message := string(p)

	switch {
	case strings.Contains(message, "[ERROR]"), strings.Contains(message, "[FATAL]"):
		err = w.elog.Error(3, message)
	case strings.Contains(message, "[WARNING]"), strings.Contains(message, "[WARN]"):
		err = w.elog.Warning(2, message)
	default:
		err = w.elog.Info(1, message)
	}

	if err != nil {
		// Yazma hatası durumunda standart çıktıya yaz
		os.Stderr.Write(p)
		return 0, err
	}
	return len(p), nil
}
