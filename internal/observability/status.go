package observability

import (
	"sync"
	"time"
)

type Stage string

const (
	StageIdle     Stage = "IDLE"
	StageClassify Stage = "CLASSIFY"
	StagePlan     Stage = "PLAN"
	StageExecute  Stage = "EXECUTE"
	StageRespond  Stage = "RESPOND"
)

type SystemStatus struct {
	mu            sync.RWMutex
	CurrentStage  Stage
	ActiveQuery   string
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	CurrentStage:  StageIdle,
	LastHeartbeat: time.Now(),
}

// SetStatus updates the global system status.
func SetStatus(stage Stage, query string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentStage = stage
	globalStatus.ActiveQuery = query
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Stage, string, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentStage, globalStatus.ActiveQuery, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
