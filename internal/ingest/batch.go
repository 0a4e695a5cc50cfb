package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"curator/internal/services"
	"curator/internal/suggest"
)

// batchFile is the wire form of one inbox file. See the package
// documentation for the schema.
type batchFile struct {
	BatchID string      `json:"batch_id"`
	Files   []fileEntry `json:"files"`
}

type fileEntry struct {
	FileID       string            `json:"file_id"`
	OriginalPath string            `json:"original_path"`
	TargetPath   string            `json:"target_path"`
	FileType     string            `json:"file_type"`
	Size         int64             `json:"size"`
	Operation    string            `json:"operation"`
	Suggestions  []suggestionEntry `json:"suggestions"`
}

type suggestionEntry struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ParseBatch decodes and shape-checks one suggestion batch.
// Completeness of the metadata (a rename without a target, say) is not
// checked here; routing rejects those per suggestion with a recorded
// reason, which beats quarantining the whole batch.
func ParseBatch(data []byte) (map[string][]suggest.RawSuggestion, map[string]suggest.FileMetadata, error) {
	var batch batchFile
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, component, "parse", "not a valid suggestion batch", err)
	}
	if len(batch.Files) == 0 {
		return nil, nil, services.Wrap(services.ErrValidation, component, "parse", "batch contains no files", nil)
	}

	suggestions := make(map[string][]suggest.RawSuggestion, len(batch.Files))
	metadata := make(map[string]suggest.FileMetadata, len(batch.Files))
	for i, file := range batch.Files {
		fileID := strings.TrimSpace(file.FileID)
		if fileID == "" {
			return nil, nil, services.Wrap(services.ErrValidation, component, "parse",
				fmt.Sprintf("file %d: file_id is required", i), nil)
		}
		if _, dup := metadata[fileID]; dup {
			return nil, nil, services.Wrap(services.ErrValidation, component, "parse",
				fmt.Sprintf("file %d: duplicate file_id %q", i, fileID), nil)
		}
		if strings.TrimSpace(file.OriginalPath) == "" {
			return nil, nil, services.Wrap(services.ErrValidation, component, "parse",
				fmt.Sprintf("file %s: original_path is required", fileID), nil)
		}
		op, ok := suggest.ParseOperationType(file.Operation)
		if !ok {
			return nil, nil, services.Wrap(services.ErrValidation, component, "parse",
				fmt.Sprintf("file %s: unknown operation %q", fileID, file.Operation), nil)
		}
		if len(file.Suggestions) == 0 {
			return nil, nil, services.Wrap(services.ErrValidation, component, "parse",
				fmt.Sprintf("file %s: no suggestions", fileID), nil)
		}

		raws := make([]suggest.RawSuggestion, 0, len(file.Suggestions))
		for j, entry := range file.Suggestions {
			if strings.TrimSpace(entry.Value) == "" {
				return nil, nil, services.Wrap(services.ErrValidation, component, "parse",
					fmt.Sprintf("file %s: suggestion %d has no value", fileID, j), nil)
			}
			raws = append(raws, suggest.RawSuggestion{
				Value:      entry.Value,
				Confidence: entry.Confidence,
				Reasoning:  entry.Reasoning,
			})
		}

		suggestions[fileID] = raws
		metadata[fileID] = suggest.FileMetadata{
			FileID:       fileID,
			OriginalPath: file.OriginalPath,
			TargetPath:   file.TargetPath,
			FileType:     file.FileType,
			Size:         file.Size,
			Operation:    op,
		}
	}
	return suggestions, metadata, nil
}
