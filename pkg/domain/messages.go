package domain

// Message keys broadcast on the dispatcher by the engine facade.
const (
	MsgRegionActivated = "region.activated" // payload: region name
	MsgRegionExited    = "region.exited"    // payload: region name
	MsgRegionCompleted = "region.completed" // payload: region name
	MsgNodeSwitched    = "node.switched"    // payload: from ref, to ref
)
