package models

// Attachment is a preview handle for one uploaded file. Key names the object
// in the media store; PreviewURL is what a client renders.
type Attachment struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	PreviewURL  string `json:"previewUrl"`
}

type Promise struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Journey struct {
	Title       string `json:"title"`
	Year        string `json:"year"`
	Description string `json:"description"`
}

// ImageField identifies one of the two image lists of a story.
type ImageField string

const (
	ImageFieldBanner  ImageField = "banner1Images"
	ImageFieldGallery ImageField = "galleryImages"
)

// Valid reports whether f names a known image list.
func (f ImageField) Valid() bool {
	return f == ImageFieldBanner || f == ImageFieldGallery
}

// FormState is everything the user enters in the wizard.
type FormState struct {
	FromName      string       `json:"fromName"`
	ToName        string       `json:"toName"`
	LoveLetter    string       `json:"loveLetter"`
	Promises      []Promise    `json:"promises"`
	Journeys      []Journey    `json:"journeys"`
	BannerImages  []Attachment `json:"banner1Images"`
	GalleryImages []Attachment `json:"galleryImages"`
	FirstMetYear  string       `json:"firstMetYear"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone"`
	Audio         *Attachment  `json:"audio,omitempty"`
}

// NewFormState returns the defaults a fresh wizard starts with.
func NewFormState() FormState {
	return FormState{
		Promises:      []Promise{{}},
		Journeys:      []Journey{{}},
		BannerImages:  []Attachment{},
		GalleryImages: []Attachment{},
	}
}

// Images returns the attachment list for field.
func (f FormState) Images(field ImageField) []Attachment {
	if field == ImageFieldBanner {
		return f.BannerImages
	}
	return f.GalleryImages
}

// Attachments lists every preview handle the form currently owns.
func (f FormState) Attachments() []Attachment {
	all := make([]Attachment, 0, len(f.BannerImages)+len(f.GalleryImages)+1)
	all = append(all, f.BannerImages...)
	all = append(all, f.GalleryImages...)
	if f.Audio != nil {
		all = append(all, *f.Audio)
	}
	return all
}

// WizardState is the complete wizard position: form contents, current step and
// the two overlays.
type WizardState struct {
	Form               FormState `json:"form"`
	Step               int       `json:"step"`
	ShowPopup          bool      `json:"showPopup"`
	ShowPaymentSummary bool      `json:"showPaymentSummary"`
}

// NewWizardState returns a wizard at step 1 with default form values.
func NewWizardState() WizardState {
	return WizardState{Form: NewFormState(), Step: 1}
}
