package entity

// Theme preference values.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// AppSettings is the singleton settings document.
type AppSettings struct {
	PINHash         string  `json:"pinHash,omitempty"`
	IsAuthenticated bool    `json:"isAuthenticated"`
	TargetHours     float64 `json:"targetHours"`
	AbsenceHours    float64 `json:"absenceHours"`
	Theme           string  `json:"theme"`
}

// DefaultSettings is what a fresh install starts with.
func DefaultSettings() AppSettings {
	return AppSettings{
		TargetHours: 180,
		Theme:       ThemeSystem,
	}
}

// HasPIN reports whether a PIN has been set.
func (s AppSettings) HasPIN() bool { return s.PINHash != "" }

// ForExport strips credentials and the logged-in flag.
func (s AppSettings) ForExport() AppSettings {
	s.PINHash = ""
	s.IsAuthenticated = false
	return s
}
