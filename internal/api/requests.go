package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abhisek/actprep/internal/questiongen"
	"github.com/abhisek/actprep/internal/subject"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("subject", validateSubject)
	_ = validate.RegisterValidation("difficulty", validateDifficulty)
}

func validateSubject(fl validator.FieldLevel) bool {
	_, err := subject.Parse(fl.Field().String())
	return err == nil
}

func validateDifficulty(fl validator.FieldLevel) bool {
	_, ok := subject.ParseDifficulty(fl.Field().String())
	return ok
}

// generateRequest is the POST /generate-questions body. Score maps are keyed
// by subject name or alias.
type generateRequest struct {
	UserResults     map[string]int         `json:"user_results" validate:"required,dive,keys,subject,endkeys,gte=0,lte=36"`
	RegionalResults map[string]int         `json:"regional_results" validate:"required,dive,keys,subject,endkeys,gte=0,lte=36"`
	History         []questiongen.Question `json:"history" validate:"max=100"`
}

func (r *generateRequest) Validate() error {
	return validate.Struct(r)
}

// answerRequest is the POST /responses body.
type answerRequest struct {
	Subject    string `json:"subject" validate:"required,subject"`
	Difficulty string `json:"difficulty" validate:"omitempty,difficulty"`
	Correct    *bool  `json:"correct" validate:"required"`
	SetNumber  int    `json:"set_number" validate:"gte=0"`
}

func (r *answerRequest) Validate() error {
	return validate.Struct(r)
}

// scores converts a validated score map to subject keys.
func scores(in map[string]int) map[subject.Subject]int {
	out := make(map[subject.Subject]int, len(in))
	for k, v := range in {
		if s, err := subject.Parse(k); err == nil {
			out[s] = v
		}
	}
	return out
}

// validationMessage renders validator errors as one line.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "subject":
			parts = append(parts, fmt.Sprintf("%s: unknown subject %q", field, fe.Value()))
		case "difficulty":
			parts = append(parts, fmt.Sprintf("%s: unknown difficulty %q", field, fe.Value()))
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "lte", "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
