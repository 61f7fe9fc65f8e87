package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Type string

const (
	TypeSocialMedia    Type = "social_media"
	TypePaymentGateway Type = "payment_gateway"
	TypeBooking        Type = "booking_platform"
	TypeAnalytics      Type = "analytics"
	TypeEmailMarketing Type = "email_marketing"
	TypeCloudStorage   Type = "cloud_storage"
	TypeMessaging      Type = "messaging"
	TypeTravelAPI      Type = "travel_api"
	TypeWeatherAPI     Type = "weather_api"
	TypeMapService     Type = "map_service"
	TypeReviewPlatform Type = "review_platform"
	TypeAccommodation  Type = "accommodation"
	TypeTransportation Type = "transportation"
	TypeCRM            Type = "crm"
	TypeWebhook        Type = "webhook"
	TypeCustom         Type = "custom"
)

var knownTypes = map[Type]struct{}{
	TypeSocialMedia: {}, TypePaymentGateway: {}, TypeBooking: {},
	TypeAnalytics: {}, TypeEmailMarketing: {}, TypeCloudStorage: {},
	TypeMessaging: {}, TypeTravelAPI: {}, TypeWeatherAPI: {},
	TypeMapService: {}, TypeReviewPlatform: {}, TypeAccommodation: {},
	TypeTransportation: {}, TypeCRM: {}, TypeWebhook: {}, TypeCustom: {},
}

func ValidType(t Type) bool {
	_, ok := knownTypes[t]
	return ok
}

type Status string

const (
	StatusPendingSetup Status = "pending_setup"
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusError        Status = "error"
	StatusRateLimited  Status = "rate_limited"
)

type Direction string

const (
	DirectionBidirectional Direction = "bidirectional"
	DirectionInbound       Direction = "inbound"
	DirectionOutbound      Direction = "outbound"
)

type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogDebug   LogLevel = "debug"
)

type RetryStrategy string

const (
	RetryExponentialBackoff RetryStrategy = "exponential_backoff"
	RetryLinear             RetryStrategy = "linear"
	RetryFixedDelay         RetryStrategy = "fixed_delay"
)

const (
	MaxRecentLogs = 50
	MaxDailyUsage = 30

	DefaultTimeoutMs = 30_000

	// UsageWarnThresholdPct is the soft quota threshold: crossing it parks
	// the integration in rate_limited while traffic continues up to the
	// hard limit.
	UsageWarnThresholdPct = 90
)

// Credentials are write-only: they never appear in read responses.
type Credentials struct {
	APIKey       string `json:"apiKey,omitempty"`
	APISecret    string `json:"apiSecret,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

type Endpoints struct {
	Authenticate string `json:"authenticate,omitempty"`
	GetData      string `json:"getData,omitempty"`
	PostData     string `json:"postData,omitempty"`
	Webhook      string `json:"webhook,omitempty"`
}

type RatePolicy struct {
	RequestsPerMinute int `json:"requestsPerMinute,omitempty"`
	RequestsPerHour   int `json:"requestsPerHour,omitempty"`
	RequestsPerDay    int `json:"requestsPerDay,omitempty"`
}

type HealthStatus struct {
	IsHealthy      bool    `json:"isHealthy"`
	LastError      string  `json:"lastError,omitempty"`
	ResponseTimeMs int64   `json:"responseTimeMs"`
	UptimePct      float64 `json:"uptimePct"`
}

type DailyUsage struct {
	Date              time.Time `json:"date"`
	Requests          int64     `json:"requests"`
	SuccessRate       float64   `json:"successRate"`
	AvgResponseTimeMs float64   `json:"avgResponseTimeMs"`
}

type RetryPolicy struct {
	MaxRetries   int   `json:"maxRetries"`
	RetryDelayMs int64 `json:"retryDelayMs"`
}

type WebhookConfig struct {
	Event       string            `json:"event"`
	URL         string            `json:"url"`
	Secret      string            `json:"secret,omitempty"`
	IsActive    bool              `json:"isActive"`
	Headers     map[string]string `json:"headers,omitempty"`
	RetryPolicy RetryPolicy       `json:"retryPolicy"`
}

type FieldMapping struct {
	SourceField string `json:"sourceField"`
	TargetField string `json:"targetField"`
	Transform   string `json:"transform,omitempty"`
}

type CircuitBreaker struct {
	Enabled          bool  `json:"enabled"`
	FailureThreshold int   `json:"failureThreshold"`
	ResetTimeoutMs   int64 `json:"resetTimeoutMs"`
}

type ErrorHandling struct {
	RetryStrategy  RetryStrategy  `json:"retryStrategy,omitempty"`
	MaxRetries     int            `json:"maxRetries"`
	TimeoutMs      int64          `json:"timeoutMs"`
	CircuitBreaker CircuitBreaker `json:"circuitBreaker"`
}

type LogEntry struct {
	Timestamp      time.Time      `json:"timestamp"`
	Level          LogLevel       `json:"level"`
	Message        string         `json:"message"`
	Data           map[string]any `json:"data,omitempty"`
	RequestID      string         `json:"requestId,omitempty"`
	ResponseTimeMs int64          `json:"responseTimeMs,omitempty"`
}

// Integration is one configured connection to an external provider.
type Integration struct {
	ID      int64  `json:"id" gorm:"primaryKey"`
	OwnerID int64  `json:"owner_id" gorm:"column:owner_id;not null;index"`
	Name    string `json:"name" gorm:"type:text;not null"`
	Slug    string `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Type    Type   `json:"type" gorm:"type:text;not null"`

	Status    Status `json:"status" gorm:"type:text;not null;default:pending_setup;index"`
	IsEnabled bool   `json:"is_enabled" gorm:"not null;default:false"`

	BaseURL        string                      `json:"base_url,omitempty" gorm:"type:text"`
	Credentials    Credentials                 `json:"-" gorm:"serializer:json"`
	Endpoints      Endpoints                   `json:"endpoints" gorm:"serializer:json"`
	RateLimit      RatePolicy                  `json:"rate_limit" gorm:"serializer:json"`
	CustomSettings datatypes.JSONMap           `json:"custom_settings,omitempty"`
	DataTypes      datatypes.JSONSlice[string] `json:"data_types"`

	LastHealthCheck *time.Time   `json:"last_health_check,omitempty"`
	Health          HealthStatus `json:"health_status" gorm:"column:health_status;serializer:json"`

	AutoSync            bool       `json:"auto_sync" gorm:"not null;default:false;index"`
	SyncIntervalSeconds int        `json:"sync_interval_seconds" gorm:"not null;default:3600"`
	LastSync            *time.Time `json:"last_sync,omitempty"`
	NextSync            *time.Time `json:"next_sync,omitempty" gorm:"index"`
	SyncDirection       Direction  `json:"sync_direction" gorm:"type:text;not null;default:bidirectional"`

	TotalRequests      int64        `json:"total_requests" gorm:"not null;default:0"`
	SuccessfulRequests int64        `json:"successful_requests" gorm:"not null;default:0"`
	FailedRequests     int64        `json:"failed_requests" gorm:"not null;default:0"`
	LastRequestAt      *time.Time   `json:"last_request_at,omitempty"`
	DailyUsage         []DailyUsage `json:"daily_usage" gorm:"serializer:json"`
	MonthlyLimit       int64        `json:"monthly_limit" gorm:"not null;default:0"`
	CurrentMonthUsage  int64        `json:"current_month_usage" gorm:"not null;default:0"`
	LastUsageReset     string       `json:"-" gorm:"type:text"`

	Webhooks      []WebhookConfig         `json:"webhooks" gorm:"serializer:json"`
	FieldMappings map[string]FieldMapping `json:"field_mappings,omitempty" gorm:"serializer:json"`

	RequestTransform  string `json:"request_transform,omitempty" gorm:"type:text"`
	ResponseTransform string `json:"response_transform,omitempty" gorm:"type:text"`

	ErrorHandling ErrorHandling `json:"error_handling" gorm:"serializer:json"`

	RecentLogs []LogEntry `json:"recent_logs" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Integration) TableName() string { return "integrations" }

// SuccessRate returns successful requests as a percentage of all requests.
func (i *Integration) SuccessRate() float64 {
	if i.TotalRequests == 0 {
		return 0
	}
	return float64(i.SuccessfulRequests) / float64(i.TotalRequests) * 100
}

// MonthlyUsagePct returns current month usage as a percentage of the quota.
func (i *Integration) MonthlyUsagePct() float64 {
	if i.MonthlyLimit == 0 {
		return 0
	}
	return float64(i.CurrentMonthUsage) / float64(i.MonthlyLimit) * 100
}

// IsHealthy reports whether the integration can serve traffic right now.
// A rate_limited integration still serves until the hard quota ceiling.
func (i *Integration) IsHealthy() bool {
	serviceable := i.Status == StatusActive || i.Status == StatusRateLimited
	withinQuota := i.MonthlyLimit <= 0 || i.CurrentMonthUsage < i.MonthlyLimit
	return serviceable &&
		i.IsEnabled &&
		i.Health.IsHealthy &&
		withinQuota
}

// Timeout returns the per-integration outbound call timeout.
func (i *Integration) Timeout() time.Duration {
	ms := i.ErrorHandling.TimeoutMs
	if ms <= 0 {
		ms = DefaultTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// RecordUsage advances the running counters and the daily usage buckets.
// Both successful and failed attempts count against the monthly quota, and
// crossing the warning threshold parks an active integration in rate_limited.
func (i *Integration) RecordUsage(success bool, responseTime time.Duration, now time.Time) {
	now = now.UTC()
	i.TotalRequests++
	if success {
		i.SuccessfulRequests++
	} else {
		i.FailedRequests++
	}
	at := now
	i.LastRequestAt = &at
	i.CurrentMonthUsage++
	if i.MonthlyLimit > 0 && i.Status == StatusActive && i.MonthlyUsagePct() >= UsageWarnThresholdPct {
		i.Status = StatusRateLimited
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	ms := float64(responseTime.Milliseconds())

	if len(i.DailyUsage) > 0 && i.DailyUsage[0].Date.Equal(day) {
		bucket := &i.DailyUsage[0]
		successes := bucket.SuccessRate * float64(bucket.Requests) / 100
		totalMs := bucket.AvgResponseTimeMs * float64(bucket.Requests)
		bucket.Requests++
		if success {
			successes++
		}
		bucket.SuccessRate = successes / float64(bucket.Requests) * 100
		bucket.AvgResponseTimeMs = (totalMs + ms) / float64(bucket.Requests)
		return
	}

	bucket := DailyUsage{Date: day, Requests: 1, AvgResponseTimeMs: ms}
	if success {
		bucket.SuccessRate = 100
	}
	i.DailyUsage = append([]DailyUsage{bucket}, i.DailyUsage...)
	if len(i.DailyUsage) > MaxDailyUsage {
		i.DailyUsage = i.DailyUsage[:MaxDailyUsage]
	}
}

// AppendLog prepends an entry to the bounded activity log, newest first.
func (i *Integration) AppendLog(entry LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	i.RecentLogs = append([]LogEntry{entry}, i.RecentLogs...)
	if len(i.RecentLogs) > MaxRecentLogs {
		i.RecentLogs = i.RecentLogs[:MaxRecentLogs]
	}
}

// ActiveWebhook returns the first active webhook subscription for the event.
func (i *Integration) ActiveWebhook(event string) *WebhookConfig {
	for idx := range i.Webhooks {
		if i.Webhooks[idx].Event == event && i.Webhooks[idx].IsActive {
			return &i.Webhooks[idx]
		}
	}
	return nil
}

// Redacted returns a copy safe to serialize on read paths. Secret-bearing
// credential fields are dropped; the OAuth client id survives.
func (i *Integration) Redacted() *Integration {
	out := *i
	out.Credentials = Credentials{ClientID: i.Credentials.ClientID}
	webhooks := make([]WebhookConfig, len(i.Webhooks))
	copy(webhooks, i.Webhooks)
	for idx := range webhooks {
		webhooks[idx].Secret = ""
	}
	out.Webhooks = webhooks
	return &out
}
