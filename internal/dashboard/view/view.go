// Package view builds the data rendered by the dashboard templates.
package view

import (
	"strings"

	"github.com/titanite07/TechVault/internal/domain"
)

// FilterAll shows every asset type.
const FilterAll = "All"

// TypeFilters lists the employee view filter options in display order.
func TypeFilters() []string {
	out := []string{FilterAll}
	for _, t := range domain.AssetTypes {
		out = append(out, string(t))
	}
	return out
}

// ParseTypeFilter normalises a ?type= value. Unknown values fall back to All.
func ParseTypeFilter(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, t := range domain.AssetTypes {
		if strings.EqualFold(raw, string(t)) {
			return string(t)
		}
	}
	return FilterAll
}

// Employee is the read-only inventory grid.
type Employee struct {
	Assets    []domain.Asset
	Filter    string
	Filters   []string
	Total     int
	Available int
	Shown     int
}

// NewEmployee filters assets by type. Total and Available are computed over
// the full list so the summary does not change with the filter.
func NewEmployee(assets []domain.Asset, filter string) Employee {
	filter = ParseTypeFilter(filter)
	v := Employee{
		Assets:  make([]domain.Asset, 0, len(assets)),
		Filter:  filter,
		Filters: TypeFilters(),
		Total:   len(assets),
	}
	for _, a := range assets {
		if a.Status == domain.AssetStatusAvailable {
			v.Available++
		}
		if filter == FilterAll || string(a.Type) == filter {
			v.Assets = append(v.Assets, a)
		}
	}
	v.Shown = len(v.Assets)
	return v
}

// Admin is the management grid.
type Admin struct {
	Assets   []domain.Asset
	Types    []domain.AssetType
	Statuses []domain.AssetStatus
	Total    int
}

// NewAdmin wraps the full asset list with the form options.
func NewAdmin(assets []domain.Asset) Admin {
	return Admin{
		Assets:   assets,
		Types:    domain.AssetTypes,
		Statuses: domain.AssetStatuses,
		Total:    len(assets),
	}
}

// Bar is one row of a horizontal bar chart.
type Bar struct {
	Label   string
	Count   int
	Percent int
}

// Analytics is the summary page.
type Analytics struct {
	Total       int
	Available   int
	Assigned    int
	Maintenance int
	ByType      []Bar
	ByStatus    []Bar
	Recent      []domain.RecentAsset
}

// NewAnalytics turns the aggregate into cards and percentage-width bars.
func NewAnalytics(a domain.Analytics) Analytics {
	v := Analytics{
		Total:       a.Total,
		Available:   a.ByStatus[domain.AssetStatusAvailable],
		Assigned:    a.ByStatus[domain.AssetStatusAssigned],
		Maintenance: a.ByStatus[domain.AssetStatusMaintenance],
		Recent:      a.RecentAssets,
	}
	for _, t := range domain.AssetTypes {
		v.ByType = append(v.ByType, bar(string(t), a.ByType[t], a.Total))
	}
	for _, s := range domain.AssetStatuses {
		v.ByStatus = append(v.ByStatus, bar(string(s), a.ByStatus[s], a.Total))
	}
	return v
}

func bar(label string, count, total int) Bar {
	b := Bar{Label: label, Count: count}
	if total > 0 {
		b.Percent = count * 100 / total
	}
	return b
}
