package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"asset-transfer-system/internal/entities"
)

const timeLayout = time.RFC3339

func nullUint64Ptr(v null.Uint64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := v.Uint64
	return &u
}

func nullFloat64Ptr(v null.Float64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func shortBranch(b *entities.Branch) *ShortBranchDTO {
	if b == nil {
		return nil
	}
	return &ShortBranchDTO{ID: b.ID, Name: b.Name}
}

func FromBranch(b *entities.Branch) BranchDTO {
	return BranchDTO{
		ID:        b.ID,
		Name:      b.Name,
		ShortName: b.ShortName,
		Type:      b.Type,
		ParentID:  b.ParentID,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt.Format(timeLayout),
		UpdatedAt: b.UpdatedAt.Format(timeLayout),
	}
}

func FromMachine(m *entities.Machine) MachineDTO {
	return MachineDTO{
		ID:           m.ID,
		Serial:       m.Serial,
		Model:        m.Model.String,
		BranchID:     m.BranchID,
		Branch:       shortBranch(m.Branch),
		Status:       m.Status,
		CustomerID:   nullUint64Ptr(m.CustomerID),
		TechnicianID: nullUint64Ptr(m.TechnicianID),
		Notes:        m.Notes.String,
		CreatedAt:    m.CreatedAt.Format(timeLayout),
		UpdatedAt:    m.UpdatedAt.Format(timeLayout),
	}
}

func FromSimCard(s *entities.SimCard) SimCardDTO {
	return SimCardDTO{
		ID:           s.ID,
		Serial:       s.Serial,
		Operator:     s.Operator.String,
		BranchID:     s.BranchID,
		Branch:       shortBranch(s.Branch),
		Status:       s.Status,
		CustomerID:   nullUint64Ptr(s.CustomerID),
		TechnicianID: nullUint64Ptr(s.TechnicianID),
		Notes:        s.Notes.String,
		CreatedAt:    s.CreatedAt.Format(timeLayout),
		UpdatedAt:    s.UpdatedAt.Format(timeLayout),
	}
}

func FromTransferOrder(o *entities.TransferOrder) TransferOrderDTO {
	items := make([]TransferOrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		itemDTO := TransferOrderItemDTO{
			Serial:   it.Serial,
			ItemType: it.ItemType,
			Received: it.Received,
		}
		if it.ReceivedAt.Valid {
			t := it.ReceivedAt.Time
			itemDTO.ReceivedAt = &t
		}
		items = append(items, itemDTO)
	}

	return TransferOrderDTO{
		ID:           o.ID,
		OrderNo:      o.OrderNo,
		FromBranchID: o.FromBranchID,
		ToBranchID:   o.ToBranchID,
		FromBranch:   shortBranch(o.FromBranch),
		ToBranch:     shortBranch(o.ToBranch),
		Type:         o.Type,
		Status:       o.Status,
		CreatedBy:    o.CreatedBy,
		Waybill:      o.Waybill.String,
		Notes:        o.Notes.String,
		Items:        items,
		CreatedAt:    o.CreatedAt.Format(timeLayout),
		UpdatedAt:    o.UpdatedAt.Format(timeLayout),
	}
}

func FromMaintenanceRequest(m *entities.MaintenanceRequest) MaintenanceRequestDTO {
	return MaintenanceRequestDTO{
		ID:           m.ID,
		Serial:       m.Serial,
		AssetType:    m.AssetType,
		BranchID:     m.BranchID,
		Status:       m.Status,
		Problem:      m.Problem.String,
		TechnicianID: nullUint64Ptr(m.TechnicianID),
		Resolution:   m.Resolution.String,
		RepairCost:   nullFloat64Ptr(m.RepairCost),
		PartsUsed:    m.PartsUsed.String,
		CreatedAt:    m.CreatedAt.Format(timeLayout),
		UpdatedAt:    m.UpdatedAt.Format(timeLayout),
	}
}

func FromMovementLog(l *entities.MovementLog) MovementLogDTO {
	return MovementLogDTO{
		ID:           l.ID,
		Serial:       l.Serial,
		AssetType:    l.AssetType,
		Action:       l.Action,
		FromBranchID: nullUint64Ptr(l.FromBranchID),
		ToBranchID:   nullUint64Ptr(l.ToBranchID),
		PerformedBy:  l.PerformedBy,
		Detail:       l.Detail.String,
		CreatedAt:    l.CreatedAt.Format(timeLayout),
	}
}
