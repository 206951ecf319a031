package syncengine

// Status is a value of the sync status state machine, the user-facing
// indicator of where syncing stands.
type Status string

const (
	StatusOffline             Status = "offline"
	StatusOfflinePendingPush  Status = "offlinePendingPush"
	StatusWaitingToSync       Status = "waitingToSync"
	StatusPulling             Status = "pulling"
	StatusPushing             Status = "pushing"
	StatusOnlineButSyncFailed Status = "onlineButSyncFailed"
	StatusOnlineAndSynced     Status = "onlineAndSynced"
)

// StatusEvent is published on the engine's status change stream.
type StatusEvent struct {
	Status Status
}

// connectionStatus is the intermediate classification a tick computes
// before deciding what to do.
type connectionStatus int

const (
	connOffline connectionStatus = iota
	connMissingConfig
	connDeviceReady
)
