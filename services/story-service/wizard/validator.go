package wizard

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
)

// Steps, in the order the wizard presents them.
const (
	StepBannerAndNames = iota + 1
	StepLoveLetter
	StepPromises
	StepJourney
	StepMemories
	StepFirstMet
	StepEmail
	StepPhone

	TotalSteps = StepPhone
)

// Field limits.
const (
	MaxBannerImages     = 4
	MaxGalleryImages    = 10
	MaxPromises         = 4
	MaxJourneys         = 4
	MinLoveLetterLength = 10
)

var stepTitles = map[int]string{
	StepBannerAndNames: "Banner & Names",
	StepLoveLetter:     "Love Letter",
	StepPromises:       "Promises",
	StepJourney:        "Our Journey",
	StepMemories:       "Memories",
	StepFirstMet:       "First Met",
	StepEmail:          "Your Email",
	StepPhone:          "Your Phone",
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// StepTitle returns the display title of step, or "" for an unknown step.
func StepTitle(step int) string {
	return stepTitles[step]
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhone reports whether s is a 10-digit Indian mobile number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ImageLimit returns the capacity of an image field.
func ImageLimit(field models.ImageField) int {
	if field == models.ImageFieldBanner {
		return MaxBannerImages
	}
	return MaxGalleryImages
}

// IsStepValid reports whether every field required at step is filled in and
// well formed. It has no side effects; an invalid step only blocks "next".
func IsStepValid(step int, f models.FormState) bool {
	switch step {
	case StepBannerAndNames:
		return len(f.BannerImages) > 0 && present(f.FromName) && present(f.ToName)
	case StepLoveLetter:
		return utf8.RuneCountInString(f.LoveLetter) >= MinLoveLetterLength
	case StepPromises:
		for _, p := range f.Promises {
			if !present(p.Title) || !present(p.Description) {
				return false
			}
		}
		return len(f.Promises) > 0
	case StepJourney:
		for _, j := range f.Journeys {
			if !present(j.Title) || !present(j.Year) || !present(j.Description) {
				return false
			}
		}
		return len(f.Journeys) > 0
	case StepMemories:
		return len(f.GalleryImages) > 0
	case StepFirstMet:
		return present(f.FirstMetYear)
	case StepEmail:
		return ValidEmail(f.Email)
	case StepPhone:
		return ValidPhone(f.Phone)
	default:
		return false
	}
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
