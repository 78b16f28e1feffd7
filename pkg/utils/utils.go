package utils

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
)

// TrimString uzun metni maxLen karakterden sonra "..." ile keser
func TrimString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// CollapseWhitespace sorgu metnindeki satır sonlarını ve fazla boşlukları tek boşluğa indirir
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GetLocalIP, yerel IP'yi almak için yardımcı fonksiyon
func GetLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}

// GetHostname makine adını döndürür, alınamazsa "unknown"
func GetHostname() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "unknown"
	}
	return hostname
}

// GetPlatformInfo işletim sistemi ve mimari bilgisini döndürür
func GetPlatformInfo() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
