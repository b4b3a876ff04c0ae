package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator"
	"github.com/meghashyamc/blobreindex/logger"
)

type Validator struct {
	validator                *validator.Validate
	logger                   logger.Logger
	tagValidationDetailsOnce sync.Once
	tagValidationDetailsMap  map[string]tagValidationDetails
}

type tagValidationDetails struct {
	validatorFunc validator.Func
	err           error
}

func New(logger logger.Logger) (*Validator, error) {
	validator := &Validator{validator: validator.New(), logger: logger}
	validator.validator.RegisterTagNameFunc(useJSONFieldNames)
	if err := validator.registerCustomValidatorsForTags(); err != nil {
		return nil, err
	}

	return validator, nil
}

func (v *Validator) Validate(i any) error {

	if err := v.validator.Struct(i); err != nil {
		v.logger.Warn("validation failed", "err", err.Error())
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {

			tagValidationDetails, ok := v.getTagValidationDetails()[validationErrs[0].Tag()]
			if ok {
				return tagValidationDetails.err
			}

			switch validationErrs[0].Tag() {
			case "required":
				return fmt.Errorf("missing required field '%s'", validationErrs[0].Field())

			case "min", "max":
				return fmt.Errorf("value or length of field '%s' is not in the expected range", validationErrs[0].Field())

			case "uuid":
				return fmt.Errorf("field '%s' is not a valid id", validationErrs[0].Field())

			}
		}
		return err
	}
	return nil
}
func (v *Validator) getTagValidationDetails() map[string]tagValidationDetails {
	v.tagValidationDetailsOnce.Do(func() {
		v.tagValidationDetailsMap = map[string]tagValidationDetails{
			"valid_blob_name": {validatorFunc: v.isValidBlobName, err: errors.New("invalid blob name")},
		}
	})
	return v.tagValidationDetailsMap
}

func (v *Validator) registerCustomValidatorsForTags() error {

	tagValidationDetailsMap := v.getTagValidationDetails()

	for tag, tagValidationDetails := range tagValidationDetailsMap {
		if err := v.validator.RegisterValidation(tag, tagValidationDetails.validatorFunc); err != nil {
			v.logger.Error("failed to register customer validator function", "err", err.Error())
			return err
		}
	}
	return nil
}

func useJSONFieldNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

const maxBlobNameLength = 1024

// isValidBlobName accepts names the blob service stores as-is: at most 1024
// characters, no backslashes, and not ending in a dot or slash.
func (v *Validator) isValidBlobName(fl validator.FieldLevel) bool {
	blobName := fl.Field().String()
	if strings.TrimSpace(blobName) == "" {
		v.logger.Warn("blob name is empty", "blob", blobName)
		return false
	}

	if utf8.RuneCountInString(blobName) > maxBlobNameLength {
		v.logger.Warn("blob name is too long", "length", utf8.RuneCountInString(blobName))
		return false
	}

	if strings.ContainsAny(blobName, "\\\x00") {
		v.logger.Warn("blob name has a backslash or null byte", "blob", blobName)
		return false
	}

	if strings.HasSuffix(blobName, ".") || strings.HasSuffix(blobName, "/") {
		v.logger.Warn("blob name ends with a dot or slash", "blob", blobName)
		return false
	}

	return true
}
