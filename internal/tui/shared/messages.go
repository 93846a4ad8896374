package shared

import (
	"github.com/joe/treewalk/internal/scanengine"
)

// ScanFinishedMsg is sent when Engine.Run returns.
type ScanFinishedMsg struct {
	Result *scanengine.Result
	Err    error
}

// StatusUpdateMsg carries a status snapshot taken on a tick.
type StatusUpdateMsg struct {
	Status scanengine.Status
}
