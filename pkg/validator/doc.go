// Package validator provides rule-based input validation.
//
// Rules are values; Apply evaluates them all and returns ValidationErrors
// listing every failure:
//
//	err := validator.Apply(
//	    validator.Required("email", req.Email),
//	    validator.ValidEmail("email", req.Email),
//	    validator.MinLen("password", req.Password, 8),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve != nil {
//	    fields := ve.Messages()
//	}
package validator
