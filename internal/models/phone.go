package models

// Phone is a parsed phone record copied from a platform profile.
// Number is the normalized international format ("+39 02 1234 5678");
// comparisons between profiles use Number equality only.
type Phone struct {
	Number    string   `json:"number"`
	Carrier   string   `json:"carrier,omitempty"`
	Country   string   `json:"country,omitempty"`
	Timezones []string `json:"timezones,omitempty"`
}
