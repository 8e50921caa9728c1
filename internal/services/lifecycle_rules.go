package services

import "asset-transfer-system/pkg/constants"

// Таблица переходов ремонтного цикла. Направленная, без неявных переходов;
// IN_TRANSIT не имеет входящих рёбер — его выставляет только оркестратор перебросок.
var lifecycleTransitions = map[string][]string{
	constants.AssetStatusInTransit:        {constants.AssetStatusReceivedAtCenter},
	constants.AssetStatusReceivedAtCenter: {constants.AssetStatusUnderInspection},
	constants.AssetStatusUnderInspection: {
		constants.AssetStatusAwaitingApproval,
		constants.AssetStatusInProgress,
		constants.AssetStatusReadyForReturn,
	},
	constants.AssetStatusAwaitingApproval: {
		constants.AssetStatusInProgress,
		constants.AssetStatusReadyForReturn,
	},
	constants.AssetStatusInProgress:     {constants.AssetStatusReadyForReturn},
	constants.AssetStatusReadyForReturn: {constants.AssetStatusReturning},
	constants.AssetStatusReturning:      {constants.AssetStatusCompleted},
}

// LifecycleStates — все состояния цикла, в порядке kanban-доски.
var LifecycleStates = []string{
	constants.AssetStatusInTransit,
	constants.AssetStatusReceivedAtCenter,
	constants.AssetStatusUnderInspection,
	constants.AssetStatusAwaitingApproval,
	constants.AssetStatusInProgress,
	constants.AssetStatusReadyForReturn,
	constants.AssetStatusReturning,
	constants.AssetStatusCompleted,
}

// IsValidTransition — чистый предикат таблицы переходов.
func IsValidTransition(from, to string) bool {
	for _, next := range lifecycleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsDecisionState — состояние, в котором к переходу прикладывается payload
// (исход, стоимость, запчасти).
func IsDecisionState(state string) bool {
	switch state {
	case constants.AssetStatusReadyForReturn, constants.AssetStatusCompleted:
		return true
	}
	return false
}
