package constants

// --- СТАТУСЫ АКТИВОВ (POS-терминалы и SIM-карты, коды совпадают с БД) ---
const (
	AssetStatusStandby          = "STANDBY"
	AssetStatusInTransit        = "IN_TRANSIT"
	AssetStatusSold             = "SOLD"
	AssetStatusAssigned         = "ASSIGNED"
	AssetStatusUnderMaintenance = "UNDER_MAINTENANCE"

	// Ремонтный цикл (kanban)
	AssetStatusReturning        = "RETURNING"
	AssetStatusReceivedAtCenter = "RECEIVED_AT_CENTER"
	AssetStatusUnderInspection  = "UNDER_INSPECTION"
	AssetStatusAwaitingApproval = "AWAITING_APPROVAL"
	AssetStatusInProgress       = "IN_PROGRESS"
	AssetStatusReadyForReturn   = "READY_FOR_RETURN"
	AssetStatusCompleted        = "COMPLETED"
)

// Статусы, запрещающие постановку актива в новый ордер переброски.
var TransferBlockedStatuses = []string{
	AssetStatusInTransit,
	AssetStatusSold,
	AssetStatusAssigned,
	AssetStatusUnderMaintenance,
}

func IsTransferBlockedStatus(code string) bool {
	for _, s := range TransferBlockedStatuses {
		if s == code {
			return true
		}
	}
	return false
}

// --- ИСХОД РЕМОНТА ---
const (
	ResolutionRepaired       = "REPAIRED"
	ResolutionScrapped       = "SCRAPPED"
	ResolutionRejectedRepair = "REJECTED_REPAIR"
)

var Resolutions = []string{ResolutionRepaired, ResolutionScrapped, ResolutionRejectedRepair}

func IsKnownResolution(code string) bool {
	for _, r := range Resolutions {
		if r == code {
			return true
		}
	}
	return false
}
