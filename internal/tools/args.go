package tools

// Argument structs mirror the Workunit MCP server's input schemas. Fields
// without omitempty are required.

type PingArgs struct {
	Message string `json:"message,omitempty" jsonschema_description:"Message to echo"`
}

type GetAuthenticatedUserArgs struct{}

type UpdateMask struct {
	Paths []string `json:"paths"`
}

type CreateProjectArgs struct {
	Name           string   `json:"name" jsonschema_description:"Project name (max 255 chars)"`
	Description    string   `json:"description,omitempty" jsonschema_description:"Project description"`
	Status         string   `json:"status,omitempty" jsonschema_description:"planning|active|on_hold|completed|archived (default: planning)"`
	Tags           []string `json:"tags,omitempty"`
	RepoURL        string   `json:"repo_url,omitempty" jsonschema_description:"Repository URL"`
	DefaultBranch  string   `json:"default_branch,omitempty" jsonschema_description:"Default branch (e.g. main)"`
	OrganizationID string   `json:"organization_id,omitempty" jsonschema_description:"Org ID (defaults to user's org)"`
	OwnerID        string   `json:"owner_id,omitempty" jsonschema_description:"Owner user ID (defaults to creator)"`
}

type GetProjectArgs struct {
	ID               string `json:"id"`
	IncludeStats     bool   `json:"include_stats,omitempty" jsonschema_description:"Include workunit/asset/checkin counts"`
	IncludeAssets    bool   `json:"include_assets,omitempty"`
	IncludeCheckins  bool   `json:"include_checkins,omitempty"`
	IncludeWorkunits bool   `json:"include_workunits,omitempty"`
}

type ListProjectsArgs struct {
	OrganizationID string   `json:"organization_id" jsonschema_description:"Org ID to list projects from"`
	OwnerID        string   `json:"owner_id,omitempty" jsonschema_description:"Filter by owner user ID"`
	Status         string   `json:"status,omitempty" jsonschema_description:"Filter: planning|active|on_hold|completed|archived"`
	Tags           []string `json:"tags,omitempty" jsonschema_description:"Filter by tags (any match)"`
	SortBy         string   `json:"sort_by,omitempty" jsonschema_description:"created_at|updated_at|name (default: created_at)"`
	SortOrder      string   `json:"sort_order,omitempty" jsonschema_description:"asc|desc (default: desc)"`
	PageSize       int      `json:"page_size,omitempty" jsonschema_description:"Results per page (default: 50, max: 100)"`
	PageNumber     int      `json:"page_number,omitempty" jsonschema_description:"Page number (1-based, default: 1)"`
}

type UpdateProjectArgs struct {
	ID            string     `json:"id"`
	UpdateMask    UpdateMask `json:"update_mask"`
	Name          string     `json:"name,omitempty"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status,omitempty" jsonschema_description:"planning|active|on_hold|completed|archived"`
	Tags          []string   `json:"tags,omitempty"`
	RepoURL       string     `json:"repo_url,omitempty"`
	DefaultBranch string     `json:"default_branch,omitempty"`
	OwnerID       string     `json:"owner_id,omitempty"`
}

type RemoveProjectArgs struct {
	ID     string `json:"id"`
	Action string `json:"action" jsonschema_description:"archive|delete"`
}

type InitialAsset struct {
	AssetID          string `json:"asset_id"`
	RelationshipType string `json:"relationship_type" jsonschema_description:"requires|affects|involves|references|owns|depends_on"`
	Notes            string `json:"notes,omitempty"`
}

type CreateWorkunitArgs struct {
	Name             string         `json:"name" jsonschema_description:"Workunit name (max 255 chars)"`
	ProblemStatement string         `json:"problem_statement" jsonschema_description:"Problem statement (max 1000 chars)"`
	SuccessCriteria  string         `json:"success_criteria" jsonschema_description:"Success criteria (max 1000 chars)"`
	Description      string         `json:"description,omitempty" jsonschema_description:"Description (max 2000 chars)"`
	ProjectID        string         `json:"project_id,omitempty"`
	Priority         string         `json:"priority,omitempty" jsonschema_description:"low|normal|high|urgent"`
	Status           string         `json:"status,omitempty" jsonschema_description:"draft|active|paused|completed|archived"`
	Tags             []string       `json:"tags,omitempty"`
	DueDate          string         `json:"due_date,omitempty" jsonschema_description:"Due date (ISO 8601)"`
	OrganizationID   string         `json:"organization_id,omitempty"`
	OwnerID          string         `json:"owner_id,omitempty"`
	InitialAssets    []InitialAsset `json:"initial_assets,omitempty" jsonschema_description:"Assets to link at creation"`
}

type GetWorkunitArgs struct {
	ID                      string `json:"id"`
	IncludeTasks            bool   `json:"include_tasks,omitempty"`
	IncludeAIContext        bool   `json:"include_ai_context,omitempty"`
	IncludeAssets           bool   `json:"include_assets,omitempty"`
	IncludeTaskComments     bool   `json:"include_task_comments,omitempty"`
	IncludeTaskContext      bool   `json:"include_task_context,omitempty"`
	IncludeTaskDependencies bool   `json:"include_task_dependencies,omitempty"`
	IncludeTaskTimeLogs     bool   `json:"include_task_time_logs,omitempty"`
}

type UpdateWorkunitArgs struct {
	ID               string     `json:"id"`
	UpdateMask       UpdateMask `json:"update_mask"`
	Name             string     `json:"name,omitempty"`
	Description      string     `json:"description,omitempty"`
	ProblemStatement string     `json:"problem_statement,omitempty"`
	SuccessCriteria  string     `json:"success_criteria,omitempty"`
	Priority         string     `json:"priority,omitempty" jsonschema_description:"low|normal|high|urgent"`
	Status           string     `json:"status,omitempty" jsonschema_description:"draft|active|paused|completed|archived"`
	Tags             []string   `json:"tags,omitempty"`
	CompletionNotes  string     `json:"completion_notes,omitempty" jsonschema_description:"Required when status=completed (max 2000 chars)"`
	ArchiveReason    string     `json:"archive_reason,omitempty" jsonschema_description:"Used when status=archived (max 1000 chars)"`
	DueDate          string     `json:"due_date,omitempty"`
	OwnerID          string     `json:"owner_id,omitempty"`
	ProjectID        string     `json:"project_id,omitempty"`
}

type CreateTaskArgs struct {
	WorkunitID     string   `json:"workunit_id"`
	Title          string   `json:"title" jsonschema_description:"Task title (max 255 chars)"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status,omitempty" jsonschema_description:"todo|in_progress|done|blocked|wont_do (default: todo)"`
	Priority       string   `json:"priority,omitempty" jsonschema_description:"low|normal|high (default: normal)"`
	Tags           []string `json:"tags,omitempty"`
	DependsOn      []string `json:"depends_on,omitempty" jsonschema_description:"Task IDs this depends on"`
	AssignedTo     string   `json:"assigned_to,omitempty" jsonschema_description:"User ID to assign"`
	DueDate        string   `json:"due_date,omitempty" jsonschema_description:"Due date (ISO 8601)"`
	EstimatedHours float64  `json:"estimated_hours,omitempty"`
	Position       int      `json:"position,omitempty" jsonschema_description:"Position in list (0 = append)"`
}

type GetTaskArgs struct {
	ID                  string `json:"id"`
	IncludeComments     bool   `json:"include_comments,omitempty"`
	IncludeDependencies bool   `json:"include_dependencies,omitempty"`
	IncludeTimeLogs     bool   `json:"include_time_logs,omitempty"`
}

type UpdateTaskArgs struct {
	ID             string     `json:"id"`
	UpdateMask     UpdateMask `json:"update_mask"`
	Title          string     `json:"title,omitempty"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status,omitempty" jsonschema_description:"todo|in_progress|done|blocked|wont_do"`
	Priority       string     `json:"priority,omitempty" jsonschema_description:"low|normal|high"`
	Tags           []string   `json:"tags,omitempty"`
	AssignedTo     string     `json:"assigned_to,omitempty" jsonschema_description:"User ID (empty string to unassign)"`
	DueDate        string     `json:"due_date,omitempty"`
	EstimatedHours float64    `json:"estimated_hours,omitempty"`
}

type SaveContextArgs struct {
	WorkunitID      string   `json:"workunit_id"`
	AtomType        string   `json:"atom_type" jsonschema_description:"decision|insight|question|attempt|progress"`
	Title           string   `json:"title" jsonschema_description:"Short summary (max 120 chars)"`
	Content         string   `json:"content" jsonschema_description:"Detailed description (max 10000 chars)"`
	Importance      string   `json:"importance,omitempty" jsonschema_description:"critical|high|normal|low (default: normal)"`
	Strength        string   `json:"strength,omitempty" jsonschema_description:"hard (locked)|soft (revisitable) (default: soft)"`
	Tags            []string `json:"tags,omitempty"`
	AuthorModel     string   `json:"author_model,omitempty" jsonschema_description:"LLM model name or 'human'"`
	Confidence      string   `json:"confidence,omitempty" jsonschema_description:"high|medium|low"`
	SupersedesID    string   `json:"supersedes_id,omitempty" jsonschema_description:"ID of atom this replaces"`
	Artifacts       []string `json:"artifacts,omitempty" jsonschema_description:"File paths, PR links, commit refs"`
	RelatedAssetIDs []string `json:"related_asset_ids,omitempty"`
	RelatedTaskIDs  []string `json:"related_task_ids,omitempty"`
}

type SearchArgs struct {
	Query          string   `json:"query"`
	ResultTypes    []string `json:"result_types,omitempty" jsonschema_description:"Filter: ['workunit', 'task', 'asset']. Omit for all types."`
	OrganizationID string   `json:"organization_id,omitempty"`
	PageSize       int      `json:"page_size,omitempty" jsonschema_description:"Max results (default: 50, max: 50)"`
	PageNumber     int      `json:"page_number,omitempty"`
	DirectoryID    string   `json:"directory_id,omitempty" jsonschema_description:"Filter assets by directory ID"`
	RootOnly       bool     `json:"root_only,omitempty" jsonschema_description:"If true, only return root-level assets"`
}

type CreateAssetArgs struct {
	AssetType          string   `json:"asset_type" jsonschema_description:"product|people|knowledge|system"`
	Name               string   `json:"name" jsonschema_description:"Asset name (max 255 chars)"`
	Description        string   `json:"description,omitempty"`
	Status             string   `json:"status,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	OrganizationID     string   `json:"organization_id,omitempty"`
	Category           string   `json:"category,omitempty" jsonschema_description:"Product: hardware|software|service|subscription|physical_good. Knowledge: documentation|training|standards|research|template|playbook. System: manufacturing|logistics|business_process|infrastructure|quality_control"`
	LifecycleStage     string   `json:"lifecycle_stage,omitempty" jsonschema_description:"Product only: concept|development|production|maintenance|discontinued"`
	Format             string   `json:"format,omitempty" jsonschema_description:"Knowledge only: document|video|course|database|wiki|spreadsheet"`
	Content            string   `json:"content,omitempty" jsonschema_description:"Knowledge only: inline markdown (max 500KB)"`
	ContentURL         string   `json:"content_url,omitempty" jsonschema_description:"Knowledge only: URL to external content"`
	Criticality        string   `json:"criticality,omitempty" jsonschema_description:"System only: standard|important|critical"`
	Location           string   `json:"location,omitempty" jsonschema_description:"System only: physical/logical location"`
	AssetSubtype       string   `json:"asset_subtype,omitempty" jsonschema_description:"People only: individual|team|department|contractor"`
	AvailabilityStatus string   `json:"availability_status,omitempty" jsonschema_description:"People only: available|busy|off|partially_available"`
	WorkloadPercent    int      `json:"workload_percent,omitempty" jsonschema:"nullable" jsonschema_description:"People only: 0-100"`
	UserID             string   `json:"user_id,omitempty" jsonschema_description:"People only: user ID for individuals"`
	LeadUserID         string   `json:"lead_user_id,omitempty" jsonschema_description:"People only: team lead user ID"`
	Version            string   `json:"version,omitempty" jsonschema_description:"Knowledge only: version ID"`
	DirectoryID        string   `json:"directory_id,omitempty" jsonschema_description:"Directory to place asset in"`
}

type GetAssetArgs struct {
	ID                        string `json:"id"`
	IncludeTypeSpecificFields bool   `json:"include_type_specific_fields,omitempty" jsonschema:"nullable" jsonschema_description:"Include type-specific fields (default: true)"`
}

type UpdateAssetArgs struct {
	ID                 string     `json:"id"`
	AssetType          string     `json:"asset_type" jsonschema_description:"product|people|knowledge|system"`
	UpdateMask         UpdateMask `json:"update_mask"`
	Name               string     `json:"name,omitempty" jsonschema:"nullable"`
	Description        string     `json:"description,omitempty" jsonschema:"nullable"`
	Status             string     `json:"status,omitempty" jsonschema:"nullable"`
	Tags               []string   `json:"tags,omitempty"`
	Category           string     `json:"category,omitempty" jsonschema:"nullable"`
	LifecycleStage     string     `json:"lifecycle_stage,omitempty" jsonschema:"nullable" jsonschema_description:"Product only"`
	Format             string     `json:"format,omitempty" jsonschema:"nullable" jsonschema_description:"Knowledge only"`
	Content            string     `json:"content,omitempty" jsonschema:"nullable" jsonschema_description:"Knowledge only"`
	ContentURL         string     `json:"content_url,omitempty" jsonschema:"nullable" jsonschema_description:"Knowledge only"`
	Criticality        string     `json:"criticality,omitempty" jsonschema:"nullable" jsonschema_description:"System only"`
	Location           string     `json:"location,omitempty" jsonschema:"nullable" jsonschema_description:"System only"`
	AssetSubtype       string     `json:"asset_subtype,omitempty" jsonschema:"nullable" jsonschema_description:"People only"`
	AvailabilityStatus string     `json:"availability_status,omitempty" jsonschema:"nullable" jsonschema_description:"People only"`
	WorkloadPercent    int        `json:"workload_percent,omitempty" jsonschema:"nullable" jsonschema_description:"People only"`
	DirectoryID        string     `json:"directory_id,omitempty" jsonschema:"nullable" jsonschema_description:"Move to directory (empty string for root)"`
}

type ProjectAssetLinkArgs struct {
	ProjectID string `json:"project_id"`
	AssetID   string `json:"asset_id"`
	Action    string `json:"action" jsonschema_description:"link|unlink"`
	Notes     string `json:"notes,omitempty" jsonschema_description:"Notes about why this asset is linked (link action only)"`
}
