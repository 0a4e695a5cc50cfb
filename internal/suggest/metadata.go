package suggest

import "strings"

// OperationType enumerates the file operations curator can execute. Copy
// exists for rollback symmetry at the executor level; batch operations built
// from suggestions use rename, move, and delete.
type OperationType string

const (
	OperationRename OperationType = "rename"
	OperationMove   OperationType = "move"
	OperationCopy   OperationType = "copy"
	OperationDelete OperationType = "delete"
)

var allOperations = []OperationType{
	OperationRename,
	OperationMove,
	OperationCopy,
	OperationDelete,
}

var operationSet = func() map[OperationType]struct{} {
	set := make(map[OperationType]struct{}, len(allOperations))
	for _, op := range allOperations {
		set[op] = struct{}{}
	}
	return set
}()

// ParseOperationType converts a string into a known OperationType.
func ParseOperationType(value string) (OperationType, bool) {
	normalized := OperationType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := operationSet[normalized]
	return normalized, ok
}

// Destructive reports whether the operation removes or replaces the source.
func (o OperationType) Destructive() bool {
	return o == OperationDelete
}

// FileMetadata identifies the file a suggestion applies to and the operation
// that applying it would perform.
type FileMetadata struct {
	FileID       string
	OriginalPath string
	TargetPath   string
	FileType     string
	Size         int64
	Operation    OperationType
}

// Complete reports whether the metadata carries everything execution needs.
// TargetPath may be blank for deletions.
func (m FileMetadata) Complete() bool {
	if strings.TrimSpace(m.FileID) == "" || strings.TrimSpace(m.OriginalPath) == "" {
		return false
	}
	if _, ok := operationSet[m.Operation]; !ok {
		return false
	}
	if m.Operation != OperationDelete && strings.TrimSpace(m.TargetPath) == "" {
		return false
	}
	return true
}

// FileOperation is the executor-level unit of work. CreateBackup requests a
// pre-image backup before the operation applies; Force allows overwriting an
// existing target.
type FileOperation struct {
	Type         OperationType
	SourcePath   string
	TargetPath   string
	CreateBackup bool
	Force        bool
}
