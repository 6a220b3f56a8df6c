// Package sanitizer provides input normalization functions for booking data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings or empty slices rather than errors.
//
// Normalization includes:
//   - Phone numbers: Convert to E.164 format (+[country][number])
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Labels: Lowercase after whitespace normalization
//   - Slices: Remove duplicates and empty values after normalization
//   - Contact maps: Normalize names and phone numbers together
package sanitizer
