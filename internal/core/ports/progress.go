package ports

// ProgressCallback reports incremental build progress: targetName is the
// target just transitioned, current/total describe its position in the
// overall run when known, and status names the new state. The signature
// mirrors original_source/include/mimir/executor.h's ProgressCallback.
// The Executor always passes 0 for current and total, and reports status
// as a domain.TargetStatus value ("running", "cached", "completed",
// "failed", "skipped") or "WOULD-BUILD" for a dry run; it does not use
// "BUILDING", "UP-TO-DATE", "SUCCESS" or "FAILED".
type ProgressCallback func(targetName string, current, total int, status string)

// ProgressReporter renders build status to a human, independent of any
// ProgressCallback wired into the executor itself.
//
//go:generate go run go.uber.org/mock/mockgen -source=progress.go -destination=mocks/mock_progress.go -package=mocks
type ProgressReporter interface {
	Report(targetName string, current, total int, status string)
}
