package models

// DraftStatus is the lifecycle state of an application pack draft.
type DraftStatus string

const (
	DraftStatusContentReview  DraftStatus = "CONTENT_REVIEW_REQUIRED"
	DraftStatusReadyForExport DraftStatus = "READY_FOR_EXPORT"
	DraftStatusReadyToApply   DraftStatus = "READY_TO_APPLY"
	DraftStatusNeedsAI        DraftStatus = "NEEDS_AI"
	DraftStatusError          DraftStatus = "ERROR"
)

// DraftAction names the write that produced a draft version.
type DraftAction string

const (
	DraftActionGenerate   DraftAction = "generate"
	DraftActionManualEdit DraftAction = "manual_edit"
	DraftActionApprove    DraftAction = "approve"
	DraftActionRevert     DraftAction = "revert"
	DraftActionPDFExport  DraftAction = "pdf_export"
)

// ATSMode chooses which keywords count toward ATS coverage.
type ATSMode string

const (
	ATSModeAll          ATSMode = "all"
	ATSModeSelectedOnly ATSMode = "selected_only"
)

// OnePageMode controls whether one-page caps warn or enforce.
type OnePageMode string

const (
	OnePageSoft OnePageMode = "soft"
	OnePageHard OnePageMode = "hard"
)

// Pack is the tailored application-pack content.
type Pack struct {
	Summary       string      `json:"summary"`
	Bullets       []string    `json:"bullets"`
	CoverLetter   string      `json:"cover_letter"`
	FocusKeywords []string    `json:"focus_keywords"`
	ATSMode       ATSMode     `json:"ats_mode"`
	OnePageMode   OnePageMode `json:"one_page_mode"`
	Polished      bool        `json:"polished"`
}

// RubricDimension is one scored dimension of a rubric.
type RubricDimension struct {
	Name   string `json:"name"`
	Score  int    `json:"score"` // 0-100
	Detail string `json:"detail,omitempty"`
}

// Rubric is a scored quality template for a pack.
type Rubric struct {
	Profile    RubricProfile     `json:"profile"`
	Dimensions []RubricDimension `json:"dimensions"`
	Overall    int               `json:"overall"`
}

// ATSResult is the deterministic keyword-coverage score of a pack.
// TargetRubric is authoritative; PMRubric mirrors it for clients that still
// read the legacy key.
type ATSResult struct {
	Score           int      `json:"score"`
	MustCoveragePct float64  `json:"must_coverage_pct"`
	NiceCoveragePct float64  `json:"nice_coverage_pct"`
	MatchedMust     []string `json:"matched_must"`
	MissingKeywords []string `json:"missing_keywords"`
	Notes           []string `json:"notes,omitempty"`
	TargetRubric    *Rubric  `json:"target_rubric,omitempty"`
	PMRubric        *Rubric  `json:"pm_rubric,omitempty"`
}

// RRMetadata describes the export contract and its validation state.
type RRMetadata struct {
	Source         string   `json:"source"`
	ContractID     string   `json:"contract_id"`
	SchemaVersion  int      `json:"schema_version"`
	Version        int      `json:"version"`
	ExportedAt     int64    `json:"exported_at"`
	TemplateID     string   `json:"template_id,omitempty"`
	Renderer       string   `json:"renderer"`
	ContractValid  bool     `json:"contract_valid"`
	ImportReady    bool     `json:"import_ready"`
	ContractErrors []string `json:"contract_errors,omitempty"`
	ImportErrors   []string `json:"import_errors,omitempty"`
}

// RRBasics mirrors the downstream resume service's identity block.
type RRBasics struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Summary  string `json:"summary"`
}

// RRExperience is one experience entry in the export.
type RRExperience struct {
	Company string   `json:"company"`
	Role    string   `json:"role"`
	Period  string   `json:"period,omitempty"`
	Bullets []string `json:"bullets"`
}

// RRHighlight is a single highlight line; Text must be non-empty for the
// export to be import-ready.
type RRHighlight struct {
	Text string `json:"text"`
}

// RRSections groups the exportable resume sections.
type RRSections struct {
	Experience []RRExperience `json:"experience"`
	Skills     []string       `json:"skills"`
	Highlights []RRHighlight  `json:"highlights"`
}

// RRJobContext ties an export back to the job it was tailored for.
type RRJobContext struct {
	JobKey    string `json:"job_key"`
	RoleTitle string `json:"role_title"`
	Company   string `json:"company"`
	JobURL    string `json:"job_url"`
}

// RRExport is the versioned object consumed by the downstream resume service.
type RRExport struct {
	Metadata   RRMetadata   `json:"metadata"`
	Basics     RRBasics     `json:"basics"`
	Sections   RRSections   `json:"sections"`
	JobContext RRJobContext `json:"job_context"`
}

// RRContractID and RRSchemaVersion pin the export contract.
const (
	RRContractID    = "jobops.rr_export.v1"
	RRSchemaVersion = 1
	RRSource        = "jobops"
	RRRenderer      = "reactive_resume"
)

// ResumeDraft is the current application pack per (job, profile). Payloads are
// kept as raw JSON so version restores are byte-identical.
type ResumeDraft struct {
	ID           string      `json:"id"`
	JobKey       string      `json:"job_key"`
	ProfileID    string      `json:"profile_id"`
	Status       DraftStatus `json:"status"`
	PackJSON     string      `json:"pack_json"`
	ATSJSON      string      `json:"ats_json"`
	RRExportJSON string      `json:"rr_export_json,omitempty"`
	VersionNo    int         `json:"version_no"`

	RRResumeID   string `json:"rr_resume_id,omitempty"`
	RRPushStatus string `json:"rr_push_status,omitempty"`
	RRPushError  string `json:"rr_push_error,omitempty"`
	PDFURL       string `json:"pdf_url,omitempty"`
	PDFStatus    string `json:"pdf_status,omitempty"`
	PDFError     string `json:"pdf_error,omitempty"`

	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
	ApprovedAt *int64 `json:"approved_at,omitempty"`
}

// DraftVersion is one immutable snapshot of a draft's payloads.
type DraftVersion struct {
	ID           string      `json:"id"`
	DraftID      string      `json:"draft_id"`
	VersionNo    int         `json:"version_no"`
	SourceAction DraftAction `json:"source_action"`
	PackJSON     string      `json:"pack_json"`
	ATSJSON      string      `json:"ats_json"`
	RRExportJSON string      `json:"rr_export_json,omitempty"`
	CreatedAt    int64       `json:"created_at"`
}
