package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 通知正在运行的看板进程重新加载数据 (SIGHUP)
func main() {
	pidFile := os.Getenv("COMMODITY_PID_FILE")
	if pidFile == "" {
		pidFile = "dashboard.pid"
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatal("Invalid pid file:", err)
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("SIGHUP sent to %d", pid)
}
