package dto

// PlatformProgress reports how far a campaign has advanced on one platform.
type PlatformProgress struct {
	Checked int `json:"checked"`
	Pending int `json:"pending"`
}

// CampaignStatus is the aggregate view over the checkpoint table.
type CampaignStatus struct {
	Persons   int                         `json:"persons"`
	Complete  int                         `json:"complete"`
	Platforms map[string]PlatformProgress `json:"platforms"`
}
