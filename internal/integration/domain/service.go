package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

var (
	ErrNotFound         = errors.New("integration_not_found")
	ErrNameTaken        = errors.New("integration_name_taken")
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrInvalidType      = errors.New("invalid_integration_type")
	ErrNotHealthy       = errors.New("integration_not_healthy")
	ErrQuotaExceeded    = errors.New("monthly_quota_exceeded")
	ErrWebhookNotFound  = errors.New("webhook_not_configured")
	ErrSignatureInvalid = errors.New("webhook_signature_invalid")
)

// Service is the integration facade consumed by the HTTP layer and
// the background scheduler.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Integration, error)
	Configure(ctx context.Context, id int64, patch ConfigPatch) (*ConfigureResponse, error)
	TestConnection(ctx context.Context, id int64) (*TestResult, error)
	SyncData(ctx context.Context, req SyncRequest) (*SyncSummary, error)
	SendData(ctx context.Context, id int64, payload map[string]any, endpoint string) (map[string]any, error)
	ReceiveData(ctx context.Context, id int64, endpoint string, params map[string]string) (map[string]any, error)
	HandleWebhook(ctx context.Context, id int64, event string, payload map[string]any, headers map[string]string) (*WebhookResult, error)
	Analytics(ctx context.Context, id int64, ownerID int64, period string) (*AnalyticsResponse, error)
	Toggle(ctx context.Context, id int64, ownerID int64, enabled bool) (*Integration, error)
	Delete(ctx context.Context, id int64, ownerID int64) error
	Get(ctx context.Context, id int64, ownerID int64) (*Integration, error)
	List(ctx context.Context, ownerID int64) ([]Integration, error)
}

type CreateRequest struct {
	OwnerID int64        `json:"-"`
	Name    string       `json:"name"`
	Type    Type         `json:"type"`
	Config  *ConfigPatch `json:"configuration,omitempty"`
}

// ConfigPatch merges into the existing configuration one top-level key
// at a time: a nil field leaves the stored value untouched.
type ConfigPatch struct {
	Credentials         *Credentials            `json:"credentials,omitempty"`
	BaseURL             *string                 `json:"baseUrl,omitempty"`
	Endpoints           *Endpoints              `json:"endpoints,omitempty"`
	RateLimit           *RatePolicy             `json:"rateLimit,omitempty"`
	CustomSettings      datatypes.JSONMap       `json:"customSettings,omitempty"`
	AutoSync            *bool                   `json:"autoSync,omitempty"`
	SyncIntervalSeconds *int                    `json:"syncIntervalSeconds,omitempty"`
	SyncDirection       *Direction              `json:"syncDirection,omitempty"`
	DataTypes           []string                `json:"dataTypes,omitempty"`
	MonthlyLimit        *int64                  `json:"monthlyLimit,omitempty"`
	Webhooks            []WebhookConfig         `json:"webhooks,omitempty"`
	FieldMappings       map[string]FieldMapping `json:"fieldMappings,omitempty"`
	RequestTransform    *string                 `json:"requestTransform,omitempty"`
	ResponseTransform   *string                 `json:"responseTransform,omitempty"`
	ErrorHandling       *ErrorHandling          `json:"errorHandling,omitempty"`
}

type TestResult struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	Data           map[string]any `json:"data,omitempty"`
	ResponseTimeMs int64          `json:"responseTimeMs"`
}

type ConfigureResponse struct {
	Integration *Integration `json:"integration"`
	TestResult  *TestResult  `json:"testResult"`
}

type SyncRequest struct {
	ID        int64     `json:"-"`
	DataType  string    `json:"dataType,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

type SyncResult struct {
	DataType         string   `json:"dataType"`
	Success          bool     `json:"success"`
	RecordsProcessed int      `json:"recordsProcessed"`
	Errors           []string `json:"errors,omitempty"`
}

type SyncSummary struct {
	Success  bool         `json:"success"`
	Results  []SyncResult `json:"results"`
	SyncedAt time.Time    `json:"syncedAt"`
	NextSync time.Time    `json:"nextSync"`
}

type WebhookResult struct {
	Event     string         `json:"event"`
	Processed bool           `json:"processed"`
	Result    map[string]any `json:"result,omitempty"`
}

type AnalyticsResponse struct {
	IntegrationID         int64        `json:"integrationId"`
	Period                string       `json:"period"`
	PeriodDays            int          `json:"periodDays"`
	TotalRequests         int64        `json:"totalRequests"`
	AverageRequestsPerDay float64      `json:"averageRequestsPerDay"`
	AverageSuccessRate    float64      `json:"averageSuccessRate"`
	AverageResponseTimeMs float64      `json:"averageResponseTimeMs"`
	DailyUsage            []DailyUsage `json:"dailyUsage"`
	RecentErrors          []LogEntry   `json:"recentErrors"`
	Health                HealthStatus `json:"health"`
	QuotaRemaining        int64        `json:"quotaRemaining"`
	MonthlyUsagePct       float64      `json:"monthlyUsagePct"`
	LastSync              *time.Time   `json:"lastSync,omitempty"`
	NextSync              *time.Time   `json:"nextSync,omitempty"`
}
