package api

import (
	"time"

	"github.com/phrazzld/transcheck-api/internal/checker"
)

// StartInspectionRequest is the body of POST /api/start.
type StartInspectionRequest struct {
	SourceFileID   string                           `json:"source_file_id" validate:"required,max=255"`
	TargetFileID   string                           `json:"target_file_id" validate:"required,max=255"`
	GlossaryFileID string                           `json:"glossary_file_id" validate:"omitempty,max=255"`
	Sheets         []string                         `json:"sheets" validate:"omitempty,dive,required"`
	SheetLangs     map[string]checker.SheetLanguage `json:"sheet_langs"`
	GlossaryURL    string                           `json:"glossary_url" validate:"omitempty,url"`
	SourceLang     string                           `json:"source_lang" validate:"max=64"`
	TargetLang     string                           `json:"target_lang" validate:"max=64"`
	TargetCode     string                           `json:"target_code" validate:"max=16"`
	MaxConcurrency int                              `json:"max_concurrency" validate:"omitempty,min=1,max=32"`
	CellRange      string                           `json:"cell_range" validate:"omitempty,cellrange"`
	ModelName      string                           `json:"model_name" validate:"required,max=128"`
}

// StartInspectionResponse is returned once a task is accepted.
type StartInspectionResponse struct {
	TaskID string `json:"taskId"`
}

// TaskResponse is a task status snapshot.
type TaskResponse struct {
	TaskID      string    `json:"taskId"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
}

// GlossaryCheckRequest is the body of POST /api/check_glossary.
type GlossaryCheckRequest struct {
	URL        string `json:"url" validate:"omitempty,url"`
	SourceLang string `json:"source_lang" validate:"max=64"`
}

// GlossaryCheckResponse confirms a loaded glossary.
type GlossaryCheckResponse struct {
	Message string `json:"message"`
}
