// Package binder decodes HTTP request bodies into Go values.
//
// JSON is strict: it requires an application/json content type, rejects
// unknown fields and trailing data, and caps the body size.
//
//	var req signInRequest
//	if err := binder.JSON(0)(r, &req); err != nil {
//	    // errors.Is(err, binder.ErrFailedToParseJSON) and friends
//	}
package binder
