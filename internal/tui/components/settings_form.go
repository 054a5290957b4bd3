package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/ebookctl/internal/domain"
	"github.com/mmcdole/ebookctl/internal/settings"
	"github.com/mmcdole/ebookctl/internal/tui/styles"
)

// FormField identifies a row of the settings form
type FormField int

const (
	FieldLanguage FormField = iota
	FieldOptimize
	FieldErrorPolicy
	FieldFrontCover
	FieldBackCover
	FieldResume
	fieldCount
)

var fieldLabels = [...]string{
	FieldLanguage:    "OCR language",
	FieldOptimize:    "Optimize",
	FieldErrorPolicy: "On error",
	FieldFrontCover:  "Front cover",
	FieldBackCover:   "Back cover",
	FieldResume:      "Resume",
}

// FormAction is what the operator asked for while editing
type FormAction int

const (
	FormNone FormAction = iota
	FormSubmit
	FormCancel
)

// SettingsForm edits the configurable fields of the selected book.
// Option fields cycle through their fixed lists; cover fields are free text.
type SettingsForm struct {
	form    settings.Form
	focus   FormField
	editing bool
	front   textinput.Model
	back    textinput.Model
}

// NewSettingsForm creates a form holding the default settings
func NewSettingsForm() SettingsForm {
	newInput := func() textinput.Model {
		ti := textinput.New()
		ti.Placeholder = "unset"
		ti.CharLimit = 8
		ti.Width = 8
		ti.Prompt = ""
		ti.PlaceholderStyle = styles.DimStyle
		return ti
	}
	f := SettingsForm{front: newInput(), back: newInput()}
	f.SetForm(settings.Project(domain.Book{}))
	return f
}

// SetForm replaces the form values
func (f *SettingsForm) SetForm(form settings.Form) {
	f.form = form
	f.front.SetValue(form.FrontCover)
	f.back.SetValue(form.BackCover)
}

// Form returns the current values, cover fields included
func (f SettingsForm) Form() settings.Form {
	form := f.form
	form.FrontCover = strings.TrimSpace(f.front.Value())
	form.BackCover = strings.TrimSpace(f.back.Value())
	return form
}

// Focused returns the row under the cursor
func (f SettingsForm) Focused() FormField {
	return f.focus
}

// IsEditing reports whether keys go to the form
func (f SettingsForm) IsEditing() bool {
	return f.editing
}

// StartEditing gives the form keyboard focus
func (f *SettingsForm) StartEditing() {
	f.editing = true
	f.focus = FieldLanguage
	f.syncFocus()
}

// StopEditing releases keyboard focus
func (f *SettingsForm) StopEditing() {
	f.editing = false
	f.front.Blur()
	f.back.Blur()
}

// ToggleResume flips the resume flag
func (f *SettingsForm) ToggleResume() {
	f.form.Resume = !f.form.Resume
}

// Update handles keys while editing
func (f SettingsForm) Update(msg tea.Msg) (SettingsForm, tea.Cmd, FormAction) {
	if !f.editing {
		return f, nil, FormNone
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			return f, nil, FormSubmit
		case "esc":
			return f, nil, FormCancel
		case "up", "shift+tab":
			f.focus = (f.focus + fieldCount - 1) % fieldCount
			f.syncFocus()
			return f, nil, FormNone
		case "down", "tab":
			f.focus = (f.focus + 1) % fieldCount
			f.syncFocus()
			return f, nil, FormNone
		case "left", "right", " ":
			if f.cycle() {
				return f, nil, FormNone
			}
		}
	}

	var cmd tea.Cmd
	switch f.focus {
	case FieldFrontCover:
		f.front, cmd = f.front.Update(msg)
	case FieldBackCover:
		f.back, cmd = f.back.Update(msg)
	}
	return f, cmd, FormNone
}

// cycle advances an option field; false for text fields
func (f *SettingsForm) cycle() bool {
	switch f.focus {
	case FieldLanguage:
		f.form.OCRLanguage = settings.Cycle(settings.Languages, f.form.OCRLanguage)
	case FieldOptimize:
		f.form.OptimizeMode = settings.Cycle(settings.OptimizeModes, f.form.OptimizeMode)
	case FieldErrorPolicy:
		f.form.ErrorPolicy = settings.Cycle(settings.ErrorPolicies, f.form.ErrorPolicy)
	case FieldResume:
		f.form.Resume = !f.form.Resume
	default:
		return false
	}
	return true
}

func (f *SettingsForm) syncFocus() {
	f.front.Blur()
	f.back.Blur()
	switch f.focus {
	case FieldFrontCover:
		f.front.Focus()
	case FieldBackCover:
		f.back.Focus()
	}
}

// View renders the form rows
func (f SettingsForm) View() string {
	resume := "no"
	if f.form.Resume {
		resume = "yes"
	}
	values := [...]string{
		FieldLanguage:    f.form.OCRLanguage,
		FieldOptimize:    f.form.OptimizeMode,
		FieldErrorPolicy: f.form.ErrorPolicy,
		FieldFrontCover:  f.front.View(),
		FieldBackCover:   f.back.View(),
		FieldResume:      resume,
	}

	rows := make([]string, 0, fieldCount)
	for i := FormField(0); i < fieldCount; i++ {
		label := styles.FieldLabelStyle.Render(fieldLabels[i])
		value := values[i]
		if f.editing && i == f.focus {
			label = styles.FieldLabelStyle.Inherit(styles.FocusedFieldStyle).Render(fieldLabels[i])
			if i != FieldFrontCover && i != FieldBackCover {
				value = styles.FocusedFieldStyle.Render("‹ " + value + " ›")
			}
		}
		rows = append(rows, label+value)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
