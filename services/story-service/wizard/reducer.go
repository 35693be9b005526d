package wizard

import (
	"errors"
	"fmt"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
)

var (
	ErrStepInvalid       = errors.New("current step is incomplete")
	ErrNotFinalStep      = errors.New("story can only be submitted from the final step")
	ErrPreviewNotOpen    = errors.New("preview is not open")
	ErrWizardClosed      = errors.New("story is already at checkout")
	ErrCapacityExceeded  = errors.New("too many files for this field")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrFirstEntryLocked  = errors.New("the first entry cannot be removed")
	ErrTooManyEntries    = errors.New("maximum number of entries reached")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnknownImageField = errors.New("unknown image field")
)

// Action is one transition of the wizard.
type Action interface {
	apply(s models.WizardState) (models.WizardState, error)
}

// Reduce applies a to s and returns the resulting state. s is never modified;
// on error the returned state equals s.
func Reduce(s models.WizardState, a Action) (models.WizardState, error) {
	if s.ShowPaymentSummary {
		return s, ErrWizardClosed
	}
	next, err := a.apply(clone(s))
	if err != nil {
		return s, err
	}
	return next, nil
}

// CanAdvance reports whether "next" would be accepted from s.
func CanAdvance(s models.WizardState) bool {
	return !s.ShowPaymentSummary && IsStepValid(s.Step, s.Form)
}

// CheckCapacity reports ErrCapacityExceeded when adding n files to field
// would overflow it. No partial acceptance is ever made.
func CheckCapacity(f models.FormState, field models.ImageField, n int) error {
	if !field.Valid() {
		return ErrUnknownImageField
	}
	if current, limit := len(f.Images(field)), ImageLimit(field); current+n > limit {
		return fmt.Errorf("%w: %s holds %d of %d, cannot add %d", ErrCapacityExceeded, field, current, limit, n)
	}
	return nil
}

// Released lists the attachments owned by prev that next no longer owns.
// Callers release exactly these handles after committing next.
func Released(prev, next models.FormState) []models.Attachment {
	kept := make(map[string]struct{})
	for _, a := range next.Attachments() {
		kept[a.Key] = struct{}{}
	}
	var released []models.Attachment
	for _, a := range prev.Attachments() {
		if _, ok := kept[a.Key]; !ok {
			released = append(released, a)
		}
	}
	return released
}

// SetField sets one of the scalar text fields by its JSON name.
type SetField struct {
	Field string
	Value string
}

func (a SetField) apply(s models.WizardState) (models.WizardState, error) {
	switch a.Field {
	case "fromName":
		s.Form.FromName = a.Value
	case "toName":
		s.Form.ToName = a.Value
	case "loveLetter":
		s.Form.LoveLetter = a.Value
	case "firstMetYear":
		s.Form.FirstMetYear = a.Value
	case "email":
		s.Form.Email = a.Value
	case "phone":
		s.Form.Phone = a.Value
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownField, a.Field)
	}
	return s, nil
}

// Batch applies several actions as one transition. If any of them fails the
// whole batch is discarded.
type Batch []Action

func (b Batch) apply(s models.WizardState) (models.WizardState, error) {
	for _, a := range b {
		var err error
		if s, err = a.apply(s); err != nil {
			return s, err
		}
	}
	return s, nil
}

type AddPromise struct{ Promise models.Promise }

func (a AddPromise) apply(s models.WizardState) (models.WizardState, error) {
	if len(s.Form.Promises) >= MaxPromises {
		return s, ErrTooManyEntries
	}
	s.Form.Promises = append(s.Form.Promises, a.Promise)
	return s, nil
}

type UpdatePromise struct {
	Index   int
	Promise models.Promise
}

func (a UpdatePromise) apply(s models.WizardState) (models.WizardState, error) {
	if a.Index < 0 || a.Index >= len(s.Form.Promises) {
		return s, ErrIndexOutOfRange
	}
	s.Form.Promises[a.Index] = a.Promise
	return s, nil
}

type RemovePromise struct{ Index int }

func (a RemovePromise) apply(s models.WizardState) (models.WizardState, error) {
	if a.Index == 0 {
		return s, ErrFirstEntryLocked
	}
	if a.Index < 0 || a.Index >= len(s.Form.Promises) {
		return s, ErrIndexOutOfRange
	}
	s.Form.Promises = append(s.Form.Promises[:a.Index], s.Form.Promises[a.Index+1:]...)
	return s, nil
}

type AddJourney struct{ Journey models.Journey }

func (a AddJourney) apply(s models.WizardState) (models.WizardState, error) {
	if len(s.Form.Journeys) >= MaxJourneys {
		return s, ErrTooManyEntries
	}
	s.Form.Journeys = append(s.Form.Journeys, a.Journey)
	return s, nil
}

type UpdateJourney struct {
	Index   int
	Journey models.Journey
}

func (a UpdateJourney) apply(s models.WizardState) (models.WizardState, error) {
	if a.Index < 0 || a.Index >= len(s.Form.Journeys) {
		return s, ErrIndexOutOfRange
	}
	s.Form.Journeys[a.Index] = a.Journey
	return s, nil
}

type RemoveJourney struct{ Index int }

func (a RemoveJourney) apply(s models.WizardState) (models.WizardState, error) {
	if a.Index == 0 {
		return s, ErrFirstEntryLocked
	}
	if a.Index < 0 || a.Index >= len(s.Form.Journeys) {
		return s, ErrIndexOutOfRange
	}
	s.Form.Journeys = append(s.Form.Journeys[:a.Index], s.Form.Journeys[a.Index+1:]...)
	return s, nil
}

// AttachImages appends a whole batch or nothing.
type AttachImages struct {
	Field models.ImageField
	Files []models.Attachment
}

func (a AttachImages) apply(s models.WizardState) (models.WizardState, error) {
	if err := CheckCapacity(s.Form, a.Field, len(a.Files)); err != nil {
		return s, err
	}
	if a.Field == models.ImageFieldBanner {
		s.Form.BannerImages = append(s.Form.BannerImages, a.Files...)
	} else {
		s.Form.GalleryImages = append(s.Form.GalleryImages, a.Files...)
	}
	return s, nil
}

// RemoveImage splices out one image, keeping the order of the rest.
type RemoveImage struct {
	Field models.ImageField
	Index int
}

func (a RemoveImage) apply(s models.WizardState) (models.WizardState, error) {
	if !a.Field.Valid() {
		return s, ErrUnknownImageField
	}
	list := s.Form.Images(a.Field)
	if a.Index < 0 || a.Index >= len(list) {
		return s, ErrIndexOutOfRange
	}
	list = append(list[:a.Index], list[a.Index+1:]...)
	if a.Field == models.ImageFieldBanner {
		s.Form.BannerImages = list
	} else {
		s.Form.GalleryImages = list
	}
	return s, nil
}

// SetAudio replaces the audio track. The previous handle shows up in Released.
type SetAudio struct{ File models.Attachment }

func (a SetAudio) apply(s models.WizardState) (models.WizardState, error) {
	file := a.File
	s.Form.Audio = &file
	return s, nil
}

type ClearAudio struct{}

func (ClearAudio) apply(s models.WizardState) (models.WizardState, error) {
	s.Form.Audio = nil
	return s, nil
}

// Next advances one step when the current step is valid; it never passes the last step.
type Next struct{}

func (Next) apply(s models.WizardState) (models.WizardState, error) {
	if !IsStepValid(s.Step, s.Form) {
		return s, fmt.Errorf("%w: %s", ErrStepInvalid, StepTitle(s.Step))
	}
	if s.Step < TotalSteps {
		s.Step++
	}
	return s, nil
}

// Back goes one step back, unconditionally, never before the first step.
type Back struct{}

func (Back) apply(s models.WizardState) (models.WizardState, error) {
	if s.Step > 1 {
		s.Step--
	}
	return s, nil
}

// Submit opens the preview popup from the final step. Every step is
// re-checked, since fields of earlier steps may have been edited since.
type Submit struct{}

func (Submit) apply(s models.WizardState) (models.WizardState, error) {
	if s.Step != TotalSteps {
		return s, ErrNotFinalStep
	}
	if step := FirstInvalidStep(s.Form); step != 0 {
		return s, fmt.Errorf("%w: %s", ErrStepInvalid, StepTitle(step))
	}
	s.ShowPopup = true
	return s, nil
}

// FirstInvalidStep returns the lowest step that fails validation, or 0.
func FirstInvalidStep(f models.FormState) int {
	for step := 1; step <= TotalSteps; step++ {
		if !IsStepValid(step, f) {
			return step
		}
	}
	return 0
}

// ConfirmPreview moves from the preview popup to the payment summary. There
// is no transition back.
type ConfirmPreview struct{}

func (ConfirmPreview) apply(s models.WizardState) (models.WizardState, error) {
	if !s.ShowPopup {
		return s, ErrPreviewNotOpen
	}
	s.ShowPopup = false
	s.ShowPaymentSummary = true
	return s, nil
}

type ClosePreview struct{}

func (ClosePreview) apply(s models.WizardState) (models.WizardState, error) {
	s.ShowPopup = false
	return s, nil
}

func clone(s models.WizardState) models.WizardState {
	f := s.Form
	f.Promises = append([]models.Promise{}, f.Promises...)
	f.Journeys = append([]models.Journey{}, f.Journeys...)
	f.BannerImages = append([]models.Attachment{}, f.BannerImages...)
	f.GalleryImages = append([]models.Attachment{}, f.GalleryImages...)
	if f.Audio != nil {
		audio := *f.Audio
		f.Audio = &audio
	}
	s.Form = f
	return s
}
