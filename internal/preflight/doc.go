// Package preflight provides system validation and pre-flight checks
// to ensure DocDex can run successfully before starting operations.
//
// The package validates:
//   - Document root existence
//   - Disk space availability (minimum 100MB)
//   - Memory availability (minimum 1GB)
//   - Write permissions in the document root
//   - File descriptor limits (minimum 1024)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, "/path/to/docs")
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
