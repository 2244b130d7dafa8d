// Package errors provides structured, coded errors for domsync.
//
// # Error Categories
//
// Errors are organized into categories:
//   - structural: the live tree and the virtual tree disagree (bad path, wrong node kind)
//   - host: the host document rejected a mutation or listener registration
//   - scheduler: render requests against a closed mount
//   - protocol: malformed binary frames
//   - config: domsync.json problems
//   - cli: invalid command input
//
// # Error Codes
//
// Each error has a unique code (e.g., "E001") that maps to:
//   - A short message describing the error
//   - A detailed explanation
//   - A documentation URL
//
// # Usage
//
//	err := errors.New("E001").
//	    At(path, "RemoveNode").
//	    WithSuggestion("Do not mutate the mount container outside the patcher")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E001: Patch path not found
//	//
//	//   RemoveNode at /0/3
//	//
//	//   A patch addressed a node that does not exist in the live tree. ...
//	//
//	//   Hint: Do not mutate the mount container outside the patcher
//	//
//	//   Learn more: https://domsync.dev/docs/errors/E001
package errors
