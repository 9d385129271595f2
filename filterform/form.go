// Package filterform models the product-search filter form: which controls
// the user changed since the page loaded, and what each of the Apply, Reset
// and page buttons submits.
package filterform

import (
	"errors"
	"net/url"
	"strconv"
)

var ErrUnknownField = errors.New("filterform: unknown field")

// Kind is the type of a form control.
type Kind string

const (
	KindText     Kind = "text"
	KindNumber   Kind = "number"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	// KindRadio is a whole radio group; Value holds the selected option and
	// Checked reports whether any option is selected.
	KindRadio  Kind = "radio"
	KindHidden Kind = "hidden"
	KindSubmit Kind = "submit"
)

// Hidden form fields understood by the search page.
const (
	FieldPage        = "page"
	FieldApply       = "apply_filters"
	FieldForceReload = "force_reload"
)

type Field struct {
	Name           string
	Kind           Kind
	Value          string
	Checked        bool
	Default        string
	DefaultChecked bool
}

func (f *Field) toggles() bool { return f.Kind == KindCheckbox || f.Kind == KindRadio }

// tracked reports whether edits to the field count as filter changes.
func (f *Field) tracked() bool { return f.Kind != KindHidden && f.Kind != KindSubmit }

type snapshot struct {
	value   string
	checked bool
}

// Form is the state of one filter form. It is not safe for concurrent use.
type Form struct {
	fields   []*Field
	index    map[string]*Field
	initial  map[string]snapshot
	changed  map[string]bool
}

// New builds a form from fields in display order and starts tracking their
// current values. Later fields with a duplicate name are dropped.
func New(fields ...Field) *Form {
	f := &Form{index: make(map[string]*Field, len(fields))}
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		if _, dup := f.index[field.Name]; dup {
			continue
		}
		fc := field
		f.fields = append(f.fields, &fc)
		f.index[fc.Name] = &fc
	}
	f.Track()
	return f
}

// Track records the current state of every tracked field as the baseline
// for change detection.
func (f *Form) Track() {
	f.initial = make(map[string]snapshot, len(f.fields))
	for _, field := range f.fields {
		if !field.tracked() {
			continue
		}
		f.initial[field.Name] = snapshot{value: field.Value, checked: field.Checked}
	}
	f.refresh()
}

func (f *Form) refresh() {
	f.changed = make(map[string]bool)
	for _, field := range f.fields {
		if !field.tracked() {
			continue
		}
		orig, ok := f.initial[field.Name]
		if !ok {
			continue
		}
		if field.toggles() {
			if field.Kind == KindRadio {
				if orig.checked != field.Checked || orig.value != field.Value {
					f.changed[field.Name] = true
				}
				continue
			}
			if orig.checked != field.Checked {
				f.changed[field.Name] = true
			}
			continue
		}
		if orig.value != field.Value {
			f.changed[field.Name] = true
		}
	}
}

// Field returns a copy of the named field.
func (f *Form) Field(name string) (Field, bool) {
	field, ok := f.index[name]
	if !ok {
		return Field{}, false
	}
	return *field, true
}

// Set assigns a value. For a radio group this selects the option.
func (f *Form) Set(name, value string) error {
	field, ok := f.index[name]
	if !ok {
		return ErrUnknownField
	}
	field.Value = value
	if field.Kind == KindRadio {
		field.Checked = value != ""
	}
	f.refresh()
	return nil
}

func (f *Form) SetChecked(name string, checked bool) error {
	field, ok := f.index[name]
	if !ok {
		return ErrUnknownField
	}
	field.Checked = checked
	f.refresh()
	return nil
}

// Changed lists the fields that differ from the tracked baseline, in form
// order.
func (f *Form) Changed() []string {
	var out []string
	for _, field := range f.fields {
		if f.changed[field.Name] {
			out = append(out, field.Name)
		}
	}
	return out
}

func (f *Form) IsChanged(name string) bool { return f.changed[name] }

// ApplyEnabled reports whether the Apply button should be clickable.
func (f *Form) ApplyEnabled() bool { return len(f.changed) > 0 }

// Values encodes the form the way a browser submits it.
func (f *Form) Values() url.Values {
	v := url.Values{}
	for _, field := range f.fields {
		switch field.Kind {
		case KindSubmit:
			continue
		case KindCheckbox:
			if !field.Checked {
				continue
			}
			val := field.Value
			if val == "" {
				val = "on"
			}
			v.Add(field.Name, val)
		case KindRadio:
			if field.Checked {
				v.Add(field.Name, field.Value)
			}
		default:
			v.Add(field.Name, field.Value)
		}
	}
	return v
}

// Submission is what a button press sends to the search page.
type Submission struct {
	Values url.Values
	// ForceFetch asks the page to skip cached results.
	ForceFetch bool
	// Loading is set on every submission; it drives the loading indicator.
	Loading bool
}

// Apply submits the current filters and asks for fresh results.
func (f *Form) Apply() Submission {
	v := f.Values()
	v.Set(FieldApply, "true")
	return Submission{Values: v, ForceFetch: true, Loading: true}
}

// Reset restores every field to its default, re-baselines change tracking
// and applies the result. Checkboxes keep their value and only restore the
// checked state.
func (f *Form) Reset() Submission {
	for _, field := range f.fields {
		if field.Kind != KindCheckbox {
			field.Value = field.Default
		}
		field.Checked = field.DefaultChecked
	}
	f.Track()
	return f.Apply()
}

// SetPage moves to page and asks the search page to check its cache before
// fetching. Forms without a page field submit unchanged apart from the
// cache-check marker.
func (f *Form) SetPage(page int) Submission {
	if field, ok := f.index[FieldPage]; ok {
		field.Value = strconv.Itoa(page)
	}
	v := f.Values()
	v.Set(FieldForceReload, "false")
	return Submission{Values: v, ForceFetch: false, Loading: true}
}
