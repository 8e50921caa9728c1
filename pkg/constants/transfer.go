package constants

// --- ТИПЫ ОРДЕРОВ ПЕРЕБРОСКИ ---
const (
	TransferTypeMachine      = "MACHINE"
	TransferTypeSim          = "SIM"
	TransferTypeMaintenance  = "MAINTENANCE"
	TransferTypeSendToCenter = "SEND_TO_CENTER"
)

// Типы, назначением которых может быть только сервисный центр.
func IsMaintenanceTransferType(code string) bool {
	return code == TransferTypeMaintenance || code == TransferTypeSendToCenter
}

// --- СТАТУСЫ ОРДЕРОВ ПЕРЕБРОСКИ ---
const (
	TransferStatusPending   = "PENDING"
	TransferStatusPartial   = "PARTIAL"
	TransferStatusReceived  = "RECEIVED"
	TransferStatusCancelled = "CANCELLED"
)

// Активные статусы: ордер держит свои серийники занятыми.
var ActiveTransferStatuses = []string{TransferStatusPending, TransferStatusPartial}

func IsFinalTransferStatus(code string) bool {
	return code == TransferStatusReceived || code == TransferStatusCancelled
}

// --- ТИПЫ АКТИВОВ ---
const (
	AssetTypeMachine = "MACHINE"
	AssetTypeSim     = "SIM"
)

// AssetTypeForTransferType — семейство активов, которое возит ордер данного типа.
// Сервисные типы возят терминалы.
func AssetTypeForTransferType(transferType string) string {
	if transferType == TransferTypeSim {
		return AssetTypeSim
	}
	return AssetTypeMachine
}

// --- ДЕЙСТВИЯ В ЖУРНАЛЕ ДВИЖЕНИЙ ---
const (
	MovementActionCreated    = "created"
	MovementActionReceived   = "received"
	MovementActionTransition = "transition"
	MovementActionCancelled  = "cancelled"
)

// --- СТАТУСЫ РЕМОНТНЫХ ЗАЯВОК ---
const (
	MaintenanceStatusOpen            = "OPEN"
	MaintenanceStatusPendingTransfer = "PENDING_TRANSFER"
	MaintenanceStatusAtCenter        = "AT_CENTER"
	MaintenanceStatusClosed          = "CLOSED"
)
