package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rmtechsolution/valentine-backend/services/story-service/checkout"
	"github.com/rmtechsolution/valentine-backend/services/story-service/media"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/pricing"
	"github.com/rmtechsolution/valentine-backend/services/story-service/repository"
	"github.com/rmtechsolution/valentine-backend/services/story-service/wizard"
	"go.uber.org/zap"
)

// MediaManager acquires and releases preview handles.
type MediaManager interface {
	Acquire(ctx context.Context, owner string, kind media.Kind, uploads []media.Upload) ([]models.Attachment, error)
	Release(ctx context.Context, atts []models.Attachment)
}

// WizardService drives the story wizard of one session at a time.
type WizardService interface {
	CreateSession(ctx context.Context) (*models.SessionView, *ServiceError)
	GetSession(ctx context.Context, id string) (*models.SessionView, *ServiceError)
	DiscardSession(ctx context.Context, id string) *ServiceError
	Apply(ctx context.Context, id string, action wizard.Action) (*models.SessionView, *ServiceError)
	AttachImages(ctx context.Context, id string, field models.ImageField, uploads []media.Upload) (*models.SessionView, *ServiceError)
	SetAudio(ctx context.Context, id string, upload media.Upload) (*models.SessionView, *ServiceError)
	ApplyPromo(ctx context.Context, id, code string) (*models.SessionView, *ServiceError)
}

type wizardServiceImpl struct {
	store  repository.SessionStore
	media  MediaManager
	promos PromoService
	logger *zap.Logger
}

func NewWizardService(store repository.SessionStore, mediaManager MediaManager, promos PromoService, logger *zap.Logger) WizardService {
	return &wizardServiceImpl{store: store, media: mediaManager, promos: promos, logger: logger}
}

// BuildView derives the API representation of a session.
func BuildView(sess *models.Session) *models.SessionView {
	phase := checkout.Normalize(checkout.Phase(sess.Checkout.Phase))
	view := &models.SessionView{
		ID:         sess.ID,
		Wizard:     sess.Wizard,
		StepTitle:  wizard.StepTitle(sess.Wizard.Step),
		TotalSteps: wizard.TotalSteps,
		CanAdvance: wizard.CanAdvance(sess.Wizard),
		Promo:      sess.Promo,
		Quote:      pricing.Quote(pricing.BasePrice, sess.Promo),
		Checkout:   sess.Checkout,
		Processing: checkout.Processing(phase),
	}
	view.Checkout.Phase = string(phase)
	return view
}

func (s *wizardServiceImpl) CreateSession(ctx context.Context) (*models.SessionView, *ServiceError) {
	now := time.Now().UTC()
	sess := &models.Session{
		ID:        uuid.NewString(),
		Wizard:    models.NewWizardState(),
		Checkout:  models.CheckoutState{Phase: string(checkout.PhaseIdle)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		return nil, newServiceError(http.StatusInternalServerError, "Failed to create session")
	}
	s.logger.Info("Session created", zap.String("session_id", sess.ID))
	return BuildView(sess), nil
}

func (s *wizardServiceImpl) GetSession(ctx context.Context, id string) (*models.SessionView, *ServiceError) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return BuildView(sess), nil
}

func (s *wizardServiceImpl) DiscardSession(ctx context.Context, id string) *ServiceError {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return s.mapError(err, id)
	}
	if checkout.Processing(checkout.Phase(sess.Checkout.Phase)) {
		return newServiceError(http.StatusConflict, "Checkout is in progress")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete session", zap.String("session_id", id), zap.Error(err))
		return errInternal
	}
	s.media.Release(ctx, sess.Wizard.Form.Attachments())
	s.logger.Info("Session discarded", zap.String("session_id", id))
	return nil
}

func (s *wizardServiceImpl) Apply(ctx context.Context, id string, action wizard.Action) (*models.SessionView, *ServiceError) {
	sess, released, err := s.reduce(ctx, id, action)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	s.media.Release(ctx, released)
	return BuildView(sess), nil
}

// reduce commits action and reports the handles the transition orphaned.
func (s *wizardServiceImpl) reduce(ctx context.Context, id string, action wizard.Action) (*models.Session, []models.Attachment, error) {
	var released []models.Attachment
	sess, err := s.store.Update(ctx, id, func(sess *models.Session) error {
		next, err := wizard.Reduce(sess.Wizard, action)
		if err != nil {
			return err
		}
		released = wizard.Released(sess.Wizard.Form, next.Form)
		sess.Wizard = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sess, released, nil
}

func (s *wizardServiceImpl) AttachImages(ctx context.Context, id string, field models.ImageField, uploads []media.Upload) (*models.SessionView, *ServiceError) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	if sess.Wizard.ShowPaymentSummary {
		return nil, s.mapError(wizard.ErrWizardClosed, id)
	}
	if err := wizard.CheckCapacity(sess.Wizard.Form, field, len(uploads)); err != nil {
		return nil, s.mapError(err, id)
	}

	acquired, err := s.media.Acquire(ctx, id, media.KindImage, uploads)
	if err != nil {
		return nil, s.mapError(err, id)
	}

	updated, released, err := s.reduce(ctx, id, wizard.AttachImages{Field: field, Files: acquired})
	if err != nil {
		s.media.Release(ctx, acquired)
		return nil, s.mapError(err, id)
	}
	s.media.Release(ctx, released)

	s.logger.Info("Images attached",
		zap.String("session_id", id),
		zap.String("field", string(field)),
		zap.Int("count", len(acquired)),
	)
	return BuildView(updated), nil
}

func (s *wizardServiceImpl) SetAudio(ctx context.Context, id string, upload media.Upload) (*models.SessionView, *ServiceError) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	if sess.Wizard.ShowPaymentSummary {
		return nil, s.mapError(wizard.ErrWizardClosed, id)
	}

	acquired, err := s.media.Acquire(ctx, id, media.KindAudio, []media.Upload{upload})
	if err != nil {
		return nil, s.mapError(err, id)
	}

	updated, released, err := s.reduce(ctx, id, wizard.SetAudio{File: acquired[0]})
	if err != nil {
		s.media.Release(ctx, acquired)
		return nil, s.mapError(err, id)
	}
	s.media.Release(ctx, released)
	return BuildView(updated), nil
}

func (s *wizardServiceImpl) ApplyPromo(ctx context.Context, id, code string) (*models.SessionView, *ServiceError) {
	quote, svcErr := s.promos.Quote(ctx, code)
	if svcErr != nil {
		return nil, svcErr
	}

	sess, err := s.store.Update(ctx, id, func(sess *models.Session) error {
		if checkout.Processing(checkout.Phase(sess.Checkout.Phase)) {
			return errCheckoutInProgress
		}
		if sess.Checkout.Phase == string(checkout.PhaseDone) {
			return errStoryAlreadySaved
		}
		sess.Promo = models.PromoState{
			Code:     quote.Code,
			Discount: quote.Discount,
			Applied:  quote.Applied,
			Message:  quote.Message,
		}
		return nil
	})
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return BuildView(sess), nil
}

var (
	errCheckoutInProgress = errors.New("checkout is in progress")
	errStoryAlreadySaved  = errors.New("story already saved")
	errNotAtCheckout      = errors.New("story is not ready for checkout")
)

func (s *wizardServiceImpl) mapError(err error, id string) *ServiceError {
	if svcErr := sessionError(err); svcErr != nil {
		return svcErr
	}
	s.logger.Error("Wizard operation failed", zap.String("session_id", id), zap.Error(err))
	return errInternal
}

// sessionError maps the errors of the wizard, media and session layers to
// HTTP errors. It returns nil for errors it does not know.
func sessionError(err error) *ServiceError {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return errSessionNotFound
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return errConflict
	case errors.Is(err, wizard.ErrWizardClosed),
		errors.Is(err, wizard.ErrNotFinalStep),
		errors.Is(err, wizard.ErrPreviewNotOpen),
		errors.Is(err, errCheckoutInProgress),
		errors.Is(err, errStoryAlreadySaved),
		errors.Is(err, errNotAtCheckout),
		errors.Is(err, checkout.ErrInvalidTransition):
		return newServiceError(http.StatusConflict, err.Error())
	case errors.Is(err, wizard.ErrStepInvalid),
		errors.Is(err, wizard.ErrCapacityExceeded),
		errors.Is(err, wizard.ErrTooManyEntries):
		return newServiceError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, wizard.ErrIndexOutOfRange),
		errors.Is(err, wizard.ErrFirstEntryLocked),
		errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, wizard.ErrUnknownImageField),
		errors.Is(err, media.ErrNoFiles):
		return newServiceError(http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrUnsupportedType):
		return newServiceError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, media.ErrFileTooLarge):
		return newServiceError(http.StatusRequestEntityTooLarge, err.Error())
	}
	return nil
}
