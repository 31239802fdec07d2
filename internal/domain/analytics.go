package domain

import "time"

// RecentAssetsLimit bounds the recent list returned with analytics.
const RecentAssetsLimit = 5

// RecentAsset is the projection of an asset shown in the recent list.
type RecentAsset struct {
	Name      string    `json:"name" bson:"name"`
	Type      AssetType `json:"type" bson:"type"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Analytics aggregates counts over the asset collection. It is derived, never persisted.
type Analytics struct {
	Total        int                 `json:"total"`
	ByType       map[AssetType]int   `json:"byType"`
	ByStatus     map[AssetStatus]int `json:"byStatus"`
	RecentAssets []RecentAsset       `json:"recentAssets"`
}

// NewAnalytics returns an aggregate with every enum key present at zero.
func NewAnalytics() Analytics {
	a := Analytics{
		ByType:       make(map[AssetType]int, len(AssetTypes)),
		ByStatus:     make(map[AssetStatus]int, len(AssetStatuses)),
		RecentAssets: []RecentAsset{},
	}
	for _, t := range AssetTypes {
		a.ByType[t] = 0
	}
	for _, s := range AssetStatuses {
		a.ByStatus[s] = 0
	}
	return a
}
