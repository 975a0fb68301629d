// Package validation checks flat string maps against pipe-separated rules.
//
// # Basic Usage
//
//	err := validation.Check(map[string]string{
//	    "key":  "db.primary",
//	    "mode": "append",
//	}, validation.Rules{
//	    "key":  "required|max:255|regex:^[A-Za-z0-9][A-Za-z0-9._/-]*$",
//	    "mode": "required|in:append,merge,set",
//	})
//
// Check returns nil or an *Errors. Make gives access to the Validator when
// the caller wants Passes/Fails.
//
// # Available Rules
//
// String rules:
//   - required: field must be present and non-empty
//   - min:n, max:n: length bounds in UTF-8 characters
//   - alpha_dash: letters, numbers, dashes, underscores
//   - regex:pattern: must match the pattern; it may contain ':' but not '|'
//
// Type rules:
//   - integer, boolean: parseable by strconv
//   - in:a,b,c and not_in:a,b,c
//   - different:other: must not equal data[other]
//
// Control rules:
//   - sometimes: skips remaining rules silently if the field is empty
//
// Rules for one field stop at the first failure.
//
// # Error Bag
//
//	{
//	  "errors": {
//	    "key":  ["The key format is invalid."],
//	    "mode": ["The selected mode is invalid."]
//	  }
//	}
package validation
