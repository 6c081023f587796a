package core

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var alnumSpacePattern = regexp.MustCompile(`^[a-zA-Z0-9\s]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	// alnumspace: letters, digits and whitespace only.
	_ = v.RegisterValidation("alnumspace", func(fl validator.FieldLevel) bool {
		return alnumSpacePattern.MatchString(fl.Field().String())
	})
	return v
}

// failedTags maps each failing field to the tag it failed on. A nil map
// means the struct is valid.
func failedTags(s any) (map[string]string, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	tags := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		tags[fe.Field()] = fe.Tag()
	}
	return tags, nil
}

func hasTag(tags map[string]string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
