package domain

import (
	"encoding/json"
	"time"
)

// AssetType classifies an inventory item.
type AssetType string

// Asset types.
const (
	AssetTypeLaptop  AssetType = "Laptop"
	AssetTypeMonitor AssetType = "Monitor"
	AssetTypeLicense AssetType = "License"
)

// AssetTypes lists every valid type in display order.
var AssetTypes = []AssetType{AssetTypeLaptop, AssetTypeMonitor, AssetTypeLicense}

// Valid reports whether t is a member of the closed type set.
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeLaptop, AssetTypeMonitor, AssetTypeLicense:
		return true
	}
	return false
}

// AssetStatus is the lifecycle state of an asset.
type AssetStatus string

// Asset statuses.
const (
	AssetStatusAvailable   AssetStatus = "Available"
	AssetStatusAssigned    AssetStatus = "Assigned"
	AssetStatusMaintenance AssetStatus = "Maintenance"
)

// AssetStatuses lists every valid status in display order.
var AssetStatuses = []AssetStatus{AssetStatusAvailable, AssetStatusAssigned, AssetStatusMaintenance}

// Valid reports whether s is a member of the closed status set.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusAvailable, AssetStatusAssigned, AssetStatusMaintenance:
		return true
	}
	return false
}

// Asset is a tracked inventory item.
type Asset struct {
	ID             string      `json:"id" bson:"_id"`
	Name           string      `json:"name" bson:"name"`
	Type           AssetType   `json:"type" bson:"type"`
	Status         AssetStatus `json:"status" bson:"status"`
	Specifications string      `json:"specifications" bson:"specifications"`
	AssignedTo     *string     `json:"assignedTo" bson:"assignedTo"`
	CreatedAt      time.Time   `json:"createdAt" bson:"createdAt"`
}

// AssetFilter narrows count queries. Zero fields match everything.
type AssetFilter struct {
	Type   AssetType
	Status AssetStatus
}

// Matches reports whether the asset satisfies the filter.
func (f AssetFilter) Matches(a Asset) bool {
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// AssetPatch carries a partial update. Nil fields are left untouched.
type AssetPatch struct {
	Name           *string        `json:"name"`
	Type           *AssetType     `json:"type"`
	Status         *AssetStatus   `json:"status"`
	Specifications *string        `json:"specifications"`
	AssignedTo     NullableString `json:"assignedTo"`
}

// Empty reports whether the patch changes nothing.
func (p AssetPatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Status == nil && p.Specifications == nil && !p.AssignedTo.Set
}

// MarshalJSON encodes only the fields present in the patch, so an unset
// assignedTo is omitted rather than sent as an explicit null.
func (p AssetPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 5)
	if p.Name != nil {
		body["name"] = *p.Name
	}
	if p.Type != nil {
		body["type"] = *p.Type
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.Specifications != nil {
		body["specifications"] = *p.Specifications
	}
	if p.AssignedTo.Set {
		body["assignedTo"] = p.AssignedTo.Value
	}
	return json.Marshal(body)
}

// Apply returns a copy of a with the patch applied.
func (p AssetPatch) Apply(a Asset) Asset {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Specifications != nil {
		a.Specifications = *p.Specifications
	}
	if p.AssignedTo.Set {
		if p.AssignedTo.Value == nil {
			a.AssignedTo = nil
		} else {
			v := *p.AssignedTo.Value
			a.AssignedTo = &v
		}
	}
	return a
}

// NullableString distinguishes an absent JSON field from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// AssetEventKind names a change published after a successful write.
type AssetEventKind string

// Asset event kinds.
const (
	AssetCreated AssetEventKind = "asset.created"
	AssetUpdated AssetEventKind = "asset.updated"
	AssetDeleted AssetEventKind = "asset.deleted"
)

// AssetEvent describes a committed change to the inventory.
type AssetEvent struct {
	Kind  AssetEventKind `json:"kind"`
	Asset Asset          `json:"asset"`
	At    time.Time      `json:"at"`
}
