package did

import (
	"sync"

	validator "github.com/go-playground/validator/v10"

	"github.com/webvh-go/did/diderr"
)

// serviceDTO is the struct-tag-validated shape checked by ValidateService;
// kept separate from Service (whose ServiceEndpoint has custom JSON
// marshaling that validator's reflection-based field walk cannot see
// through), the same split ParichayaHQ-credence uses between its wire
// types and its validator-tagged structs.
type serviceDTO struct {
	ID   string   `validate:"required"`
	Type []string `validate:"required,min=1,dive,required"`
	URIs []string `validate:"omitempty,dive,required,uri"`
}

var (
	validatorOnce    sync.Once
	serviceValidator *validator.Validate
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		serviceValidator = validator.New()
	})
	return serviceValidator
}

// ValidateService runs struct-tag validation over s's id, type list and
// any string-form serviceEndpoint URIs. DocumentBuilder.AddService and the
// AddServices PatchBuilder call it; callers building Service values by
// other routes can call it directly (Document.Validate itself checks only
// service id uniqueness). Object-shaped endpoints are not URI-validated, since
// validator has no notion of an open JSON map's required shape; a service
// with no string-form endpoint at all (all-object, or altogether empty)
// only gets the id/type checks.
func ValidateService(s *Service) error {
	dto := serviceDTO{ID: s.ID, Type: s.Type, URIs: s.Endpoint.URIRefs}
	if err := getValidator().Struct(dto); err != nil {
		return diderr.Wrap(diderr.KindInvalidOperation, "service failed validation", err).WithURL(s.ID)
	}
	return nil
}
