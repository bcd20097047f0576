package models

// Window is a fixed calendar look-back period relative to the latest
// date in the dataset.
type Window string

const (
	WindowDaily     Window = "daily"
	WindowWeekly    Window = "weekly"
	WindowMonthly   Window = "monthly"
	WindowQuarterly Window = "quarterly"
	WindowYTD       Window = "ytd"
)

// Windows lists all windows in display order.
func Windows() []Window {
	return []Window{WindowDaily, WindowWeekly, WindowMonthly, WindowQuarterly, WindowYTD}
}

// Validate validates a Window
func (w Window) Validate() error {
	validWindows := map[Window]bool{
		WindowDaily:     true,
		WindowWeekly:    true,
		WindowMonthly:   true,
		WindowQuarterly: true,
		WindowYTD:       true,
	}
	if !validWindows[w] {
		return ErrInvalidWindow
	}
	return nil
}
