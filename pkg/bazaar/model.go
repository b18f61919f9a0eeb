// Package bazaar implements the control-plane orchestration surface:
// validating model requests, persisting Model/ModelDependency/ModelAttribute
// rows, and asking the job lifecycle manager to submit or delete scheduler
// jobs on their behalf.
package bazaar

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/pkg/auth"
	"github.com/modelbazaar/controlplane/pkg/scheduler"
)

// ModelType is the closed set of model kinds the control plane trains and
// deploys.
type ModelType string

const (
	TypeNDB                 ModelType = "ndb"
	TypeUDT                 ModelType = "udt"
	TypeEnterpriseSearch    ModelType = "enterprise_search"
	TypeKnowledgeExtraction ModelType = "knowledge_extraction"
)

func isValidType(t ModelType) bool {
	switch t {
	case TypeNDB, TypeUDT, TypeEnterpriseSearch, TypeKnowledgeExtraction:
		return true
	}
	return false
}

// nameRE is the name validation rule spec.md §4.D requires on every model
// and catalog name.
var nameRE = regexp.MustCompile(`^[\w-]+$`)

// Model is a row in the model table: the central entity every component
// reads from and writes status back to.
type Model struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Name               string
	Type               ModelType
	SubType            string
	Domain             string
	AccessLevel        auth.AccessLevel
	ParentID           *uuid.UUID
	TeamID             *uuid.UUID
	TrainStatus        string
	DeployStatus       string
	CacheRefreshStatus string
	TrainJobID         string
	DeployJobID        string
	CPUMhz             int64
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ModelDependency links a workflow model (e.g. enterprise_search) to the
// leaf models it composes.
type ModelDependency struct {
	ModelID      uuid.UUID
	DependencyID uuid.UUID
}

// ModelAttribute is one free-form key/value configuration entry for a
// workflow model.
type ModelAttribute struct {
	ModelID uuid.UUID
	Key     string
	Value   string
}

// TrainRequest is the JSON body for POST /train.
type TrainRequest struct {
	Name            string            `json:"name" validate:"required,max=128"`
	Type            ModelType         `json:"type" validate:"required,oneof=ndb udt enterprise_search knowledge_extraction"`
	SubType         string            `json:"sub_type"`
	Domain          string            `json:"domain"`
	AccessLevel     auth.AccessLevel  `json:"access_level" validate:"required,oneof=public protected private"`
	TeamID          *uuid.UUID        `json:"team_id"`
	ParentID        *uuid.UUID        `json:"parent_id"`
	DataRefs        []string          `json:"data_refs"`
	Hyperparameters map[string]string `json:"hyperparameters"`
	LLMProvider     string            `json:"llm_provider"`
	CPUMhz          int64             `json:"cpu_mhz" validate:"required,gt=0"`
	Overwrite       bool              `json:"overwrite"`
}

// DeployRequest is the optional JSON body for POST /deploy/{model_id}.
type DeployRequest struct {
	CPUMhz int64 `json:"cpu_mhz"`
}

// UpdateStatusRequest is the JSON body for POST /deploy/update-status,
// called by the deployment worker itself, authenticated with a job token.
type UpdateStatusRequest struct {
	ModelID uuid.UUID `json:"model_id" validate:"required"`
	Status  string    `json:"status" validate:"required,oneof=not_started starting in_progress stopped complete failed"`
}

// SaveRequest is the JSON body for POST /deploy/{model_id}/save.
type SaveRequest struct {
	ModelName string `json:"model_name"`
}

// EnterpriseSearchRequest is the JSON body for POST /workflow/enterprise-search.
type EnterpriseSearchRequest struct {
	Name        string           `json:"name" validate:"required,max=128"`
	RetrievalID uuid.UUID        `json:"retrieval_id" validate:"required"`
	GuardrailID *uuid.UUID       `json:"guardrail_id"`
	Domain      string           `json:"domain"`
	AccessLevel auth.AccessLevel `json:"access_level" validate:"required,oneof=public protected private"`
}

// Response is the JSON representation of a Model.
type Response struct {
	ID                 uuid.UUID        `json:"id"`
	UserID             uuid.UUID        `json:"user_id"`
	Name               string           `json:"name"`
	Type               ModelType        `json:"type"`
	SubType            string           `json:"sub_type,omitempty"`
	Domain             string           `json:"domain,omitempty"`
	AccessLevel        auth.AccessLevel `json:"access_level"`
	ParentID           *uuid.UUID       `json:"parent_id,omitempty"`
	TeamID             *uuid.UUID       `json:"team_id,omitempty"`
	TrainStatus        string           `json:"train_status"`
	DeployStatus       string           `json:"deploy_status"`
	CacheRefreshStatus string           `json:"cache_refresh_status"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func (m *Model) ToResponse() Response {
	return Response{
		ID:                 m.ID,
		UserID:             m.UserID,
		Name:               m.Name,
		Type:               m.Type,
		SubType:            m.SubType,
		Domain:             m.Domain,
		AccessLevel:        m.AccessLevel,
		ParentID:           m.ParentID,
		TeamID:             m.TeamID,
		TrainStatus:        m.TrainStatus,
		DeployStatus:       m.DeployStatus,
		CacheRefreshStatus: m.CacheRefreshStatus,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// canAdvance reports whether the closed status enum may move from cur to
// next: not_started -> starting -> in_progress -> (complete|failed), with
// complete -> stopped as the one permitted terminal demotion.
func canAdvance(cur, next string) bool {
	if cur == next {
		return true
	}
	switch cur {
	case scheduler.StatusNotStarted:
		return next == scheduler.StatusStarting
	case scheduler.StatusStarting:
		return next == scheduler.StatusInProgress || next == scheduler.StatusFailed
	case scheduler.StatusInProgress:
		return next == scheduler.StatusComplete || next == scheduler.StatusFailed
	case scheduler.StatusComplete:
		return next == scheduler.StatusStopped
	default: // failed, stopped are terminal
		return false
	}
}
