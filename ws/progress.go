package ws

import (
	"warrantywatch/warranty"
)

// ProgressBroadcaster bridges pipeline progress callbacks onto the hub so
// every connected dashboard sees lookup and write-back progress live.
type ProgressBroadcaster struct {
	hub *Hub
}

// NewProgressBroadcaster wraps a hub.
func NewProgressBroadcaster(hub *Hub) *ProgressBroadcaster {
	return &ProgressBroadcaster{hub: hub}
}

// OnProgress satisfies warranty.ProgressFunc. It never blocks; a slow or
// absent dashboard drops frames instead of stalling the pipeline.
func (b *ProgressBroadcaster) OnProgress(p warranty.Progress) {
	b.hub.Broadcast(Message{
		Type: MessageTypeSyncProgress,
		Data: map[string]interface{}{
			"stage":     p.Stage,
			"serial":    p.Serial,
			"completed": p.Completed,
			"total":     p.Total,
		},
	})
}

// SyncStarted announces a new sync run.
func (b *ProgressBroadcaster) SyncStarted(total int) {
	b.hub.Broadcast(Message{
		Type: MessageTypeSyncStarted,
		Data: map[string]interface{}{"total": total},
	})
}

// SyncFinished announces completion with the run's headline numbers.
func (b *ProgressBroadcaster) SyncFinished(report *warranty.SyncReport) {
	data := map[string]interface{}{
		"total":      report.Total,
		"dispatched": report.Dispatched,
		"cached":     report.Cached,
	}
	if report.WriteBack != nil {
		data["written_back"] = report.WriteBack.Succeeded
		data["write_back_failed"] = report.WriteBack.Failed
	}
	b.hub.Broadcast(Message{Type: MessageTypeSyncFinished, Data: data})
}
