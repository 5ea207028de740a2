// Package errors provides structured, actionable error messages for the
// tracked CLI.
//
// Each error has a code (e.g. "E100") mapping to a short message, a
// detailed explanation and a category. Call sites add a suggestion or
// wrap the underlying cause.
//
// # Error Categories
//
//   - runtime: reactive engine failures (reaction cycles, bad writes)
//   - config: tracked.json problems
//   - storage: snapshot load and save failures
//   - cli: command usage and server failures
//
// # Usage
//
//	err := errors.New("E100").
//	    WithDetail("No tracked.json found in " + dir).
//	    WithSuggestion("Pass --config or create tracked.json")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E100: Configuration file not found
//	//
//	//   No tracked.json found in /srv/app
//	//
//	//   Hint: Pass --config or create tracked.json
package errors
