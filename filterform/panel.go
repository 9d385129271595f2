package filterform

// Panel is the collapsible filter sidebar shown on narrow screens. It starts
// hidden.
type Panel struct{ visible bool }

func (p *Panel) Toggle()       { p.visible = !p.visible }
func (p *Panel) Visible() bool { return p.visible }

// Label is the text of the toggle button.
func (p *Panel) Label() string {
	if p.visible {
		return "Hide Filters"
	}
	return "Show Filters"
}
