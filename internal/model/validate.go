package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var postingValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that a harvested posting carries the fields the ledger
// needs. The returned error wraps ErrInvalidPosting.
func (p Posting) Validate() error {
	err := postingValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidPosting, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+"("+fe.Tag()+")")
	}
	return fmt.Errorf("%w: %s", ErrInvalidPosting, strings.Join(fields, ", "))
}
