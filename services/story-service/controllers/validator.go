package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/wizard"
)

// FieldsRequest is the body of PATCH /sessions/:id/fields. Absent fields are left alone.
type FieldsRequest struct {
	FromName     *string `json:"fromName" validate:"omitempty,max=100"`
	ToName       *string `json:"toName" validate:"omitempty,max=100"`
	LoveLetter   *string `json:"loveLetter" validate:"omitempty,max=5000"`
	FirstMetYear *string `json:"firstMetYear" validate:"omitempty,max=100"`
	Email        *string `json:"email" validate:"omitempty,max=254"`
	Phone        *string `json:"phone" validate:"omitempty,max=15"`
}

type PromiseRequest struct {
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=1000"`
}

type JourneyRequest struct {
	Title       string `json:"title" validate:"max=200"`
	Year        string `json:"year" validate:"max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// contactHints checks contact fields the way the final steps will, so a
// client can show inline messages while the user is still typing.
type contactHints struct {
	Email string `validate:"omitempty,email"`
	Phone string `validate:"omitempty,inphone"`
}

var hintMessages = map[string]string{
	"Email": "Please enter a valid email address",
	"Phone": "Please enter a valid 10-digit mobile number",
}

// RequestValidator validates request DTOs.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	_ = v.RegisterValidation("inphone", func(fl validator.FieldLevel) bool {
		return wizard.ValidPhone(fl.Field().String())
	})
	return &RequestValidator{validate: v}
}

// Struct validates req against its validate tags.
func (rv *RequestValidator) Struct(req interface{}) error {
	if err := rv.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed on %s", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// ParseFields turns a FieldsRequest into one atomic wizard action.
func (rv *RequestValidator) ParseFields(c *gin.Context) (wizard.Batch, error) {
	var req FieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := rv.Struct(&req); err != nil {
		return nil, err
	}

	var batch wizard.Batch
	add := func(field string, v *string) {
		if v != nil {
			batch = append(batch, wizard.SetField{Field: field, Value: *v})
		}
	}
	add("fromName", req.FromName)
	add("toName", req.ToName)
	add("loveLetter", req.LoveLetter)
	add("firstMetYear", req.FirstMetYear)
	add("email", req.Email)
	add("phone", req.Phone)

	if len(batch) == 0 {
		return nil, errors.New("no fields to update")
	}
	return batch, nil
}

// FieldHints reports malformed contact fields of a form, keyed by JSON field name.
func (rv *RequestValidator) FieldHints(f models.FormState) map[string]string {
	hints := make(map[string]string)
	err := rv.validate.Struct(contactHints{
		Email: strings.TrimSpace(f.Email),
		Phone: strings.TrimSpace(f.Phone),
	})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			hints[strings.ToLower(fe.Field())] = hintMessages[fe.Field()]
		}
	}
	return hints
}

// ParsePromise reads an optional promise body; an empty body is a blank entry.
func (rv *RequestValidator) ParsePromise(c *gin.Context) (models.Promise, error) {
	var req PromiseRequest
	if c.Request.ContentLength == 0 {
		return models.Promise{}, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return models.Promise{}, fmt.Errorf("invalid request body: %w", err)
	}
	if err := rv.Struct(&req); err != nil {
		return models.Promise{}, err
	}
	return models.Promise{Title: req.Title, Description: req.Description}, nil
}

func (rv *RequestValidator) ParseJourney(c *gin.Context) (models.Journey, error) {
	var req JourneyRequest
	if c.Request.ContentLength == 0 {
		return models.Journey{}, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return models.Journey{}, fmt.Errorf("invalid request body: %w", err)
	}
	if err := rv.Struct(&req); err != nil {
		return models.Journey{}, err
	}
	return models.Journey{Title: req.Title, Year: req.Year, Description: req.Description}, nil
}

// ParseIndex reads a non-negative path index.
func (rv *RequestValidator) ParseIndex(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		return 0, errors.New("invalid index")
	}
	return idx, nil
}
