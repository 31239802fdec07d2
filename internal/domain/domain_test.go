package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validAsset() Asset {
	return Asset{
		ID:             "a-1",
		Name:           "Dell Latitude 5520",
		Type:           AssetTypeLaptop,
		Status:         AssetStatusAvailable,
		Specifications: "i7, 16GB RAM",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestValidateAssetAcceptsValidRecord(t *testing.T) {
	if res := ValidateAsset(validAsset()); !res.OK() {
		t.Fatalf("expected valid asset, got %v", res.Reasons)
	}
}

func TestValidateAssetCollectsReasons(t *testing.T) {
	a := Asset{Name: "  ", Type: "Tablet", Status: "Lost"}
	res := ValidateAsset(a)
	if res.OK() {
		t.Fatalf("expected invalid result")
	}
	if len(res.Reasons) != 4 {
		t.Fatalf("expected 4 reasons, got %d: %v", len(res.Reasons), res.Reasons)
	}
	var verr *ValidationError
	if !errors.As(res.Err(), &verr) {
		t.Fatalf("expected *ValidationError, got %T", res.Err())
	}
	if len(verr.Reasons) != 4 {
		t.Fatalf("unexpected error reasons %v", verr.Reasons)
	}
}

func TestValidateAssetMissingType(t *testing.T) {
	a := validAsset()
	a.Type = ""
	res := ValidateAsset(a)
	if len(res.Reasons) != 1 || res.Reasons[0] != "type is required" {
		t.Fatalf("unexpected reasons %v", res.Reasons)
	}
}

func TestAssetPatchApply(t *testing.T) {
	var patch AssetPatch
	if err := json.Unmarshal([]byte(`{"status":"Assigned","assignedTo":"jdoe"}`), &patch); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	updated := patch.Apply(validAsset())
	if updated.Status != AssetStatusAssigned {
		t.Fatalf("expected Assigned, got %s", updated.Status)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != "jdoe" {
		t.Fatalf("expected assignedTo jdoe, got %v", updated.AssignedTo)
	}
	if updated.Name != "Dell Latitude 5520" {
		t.Fatalf("name should be untouched, got %q", updated.Name)
	}

	var clear AssetPatch
	if err := json.Unmarshal([]byte(`{"assignedTo":null}`), &clear); err != nil {
		t.Fatalf("decode clear patch: %v", err)
	}
	if !clear.AssignedTo.Set || clear.AssignedTo.Value != nil {
		t.Fatalf("expected explicit null, got %+v", clear.AssignedTo)
	}
	if cleared := clear.Apply(updated); cleared.AssignedTo != nil {
		t.Fatalf("expected assignedTo cleared, got %v", *cleared.AssignedTo)
	}

	var empty AssetPatch
	if err := json.Unmarshal([]byte(`{"id":"other","createdAt":"2020-01-01T00:00:00Z"}`), &empty); err != nil {
		t.Fatalf("decode empty patch: %v", err)
	}
	if !empty.Empty() {
		t.Fatalf("immutable fields must not produce a change")
	}
}

func TestNewAnalyticsHasAllKeys(t *testing.T) {
	a := NewAnalytics()
	for _, typ := range AssetTypes {
		if _, ok := a.ByType[typ]; !ok {
			t.Fatalf("missing type key %s", typ)
		}
	}
	for _, st := range AssetStatuses {
		if _, ok := a.ByStatus[st]; !ok {
			t.Fatalf("missing status key %s", st)
		}
	}
	payload, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["recentAssets"].([]any); !ok {
		t.Fatalf("recentAssets should encode as an array, got %v", decoded["recentAssets"])
	}
}

func TestUserHashNeverSerialized(t *testing.T) {
	payload, err := json.Marshal(User{ID: "u", Username: "admin", PasswordHash: []byte("hash"), Role: RoleAdmin})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(payload, &decoded)
	if _, ok := decoded["passwordHash"]; ok {
		t.Fatalf("password hash leaked: %s", payload)
	}
}

func TestAssetPatchMarshalOmitsUnsetFields(t *testing.T) {
	status := AssetStatusMaintenance
	raw, err := json.Marshal(AssetPatch{Status: &status})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"status":"Maintenance"}` {
		t.Fatalf("unexpected body %s", raw)
	}

	raw, err = json.Marshal(AssetPatch{AssignedTo: NullableString{Set: true}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"assignedTo":null}` {
		t.Fatalf("explicit null must be kept, got %s", raw)
	}

	var decoded AssetPatch
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.AssignedTo.Set || decoded.AssignedTo.Value != nil || decoded.Status != nil {
		t.Fatalf("unexpected decoded patch %+v", decoded)
	}

	raw, err = json.Marshal(AssetPatch{})
	if err != nil || string(raw) != `{}` {
		t.Fatalf("empty patch must encode as {}, got %s (%v)", raw, err)
	}
}
