// Package repository contains data access logic separated from HTTP
// handlers. This file defines error values shared across repositories so
// higher layers can distinguish failure scenarios with errors.Is instead of
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or belongs to another
// owner. The two cases are deliberately indistinguishable so that a caller
// can never probe for the existence of someone else's rows; handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by user creation when the email address is
// already registered. Handlers should translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")
