package filterform

import (
	"errors"
	"fmt"
)

var ErrUnknownEvent = errors.New("filterform: unknown event")

// EventType names a UI interaction on the search page.
type EventType string

const (
	EventChange EventType = "change"
	EventApply  EventType = "apply"
	EventReset  EventType = "reset"
	EventPage   EventType = "page"
	EventToggle EventType = "toggle"
)

// Event is one UI interaction. Field and Value are used by change events
// (Checked for checkbox controls); Page by page events.
type Event struct {
	Type    EventType
	Field   string
	Value   string
	Checked bool
	Page    int
}

// SubmitFunc receives every submission the controller produces.
type SubmitFunc func(Submission)

// Controller wires UI events to a form and its mobile panel.
type Controller struct {
	form   *Form
	panel  *Panel
	submit SubmitFunc
}

// NewController returns a controller over form. submit may be nil.
func NewController(form *Form, submit SubmitFunc) *Controller {
	if submit == nil {
		submit = func(Submission) {}
	}
	return &Controller{form: form, panel: &Panel{}, submit: submit}
}

func (c *Controller) Form() *Form   { return c.form }
func (c *Controller) Panel() *Panel { return c.panel }

// Handle processes ev. It reports whether a submission was sent. An apply
// event while no filter changed is dropped, matching the disabled button.
func (c *Controller) Handle(ev Event) (bool, error) {
	switch ev.Type {
	case EventChange:
		field, ok := c.form.index[ev.Field]
		if !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownField, ev.Field)
		}
		if field.Kind == KindCheckbox {
			return false, c.form.SetChecked(ev.Field, ev.Checked)
		}
		return false, c.form.Set(ev.Field, ev.Value)
	case EventApply:
		if !c.form.ApplyEnabled() {
			return false, nil
		}
		c.submit(c.form.Apply())
		return true, nil
	case EventReset:
		c.submit(c.form.Reset())
		return true, nil
	case EventPage:
		if ev.Page < 1 {
			return false, fmt.Errorf("filterform: invalid page %d", ev.Page)
		}
		c.submit(c.form.SetPage(ev.Page))
		return true, nil
	case EventToggle:
		c.panel.Toggle()
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
}
