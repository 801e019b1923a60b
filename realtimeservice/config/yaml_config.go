package config

import (
	"fmt"
	"time"
)

// --- YAML-Specific Structs ---

type YamlRedisConfig struct {
	Addr string `yaml:"addr"`
}

type YamlPresenceMirrorConfig struct {
	Type       string          `yaml:"type"` // "redis" or "none"
	Redis      YamlRedisConfig `yaml:"redis"`
	TTLSeconds int             `yaml:"ttl_seconds"`
}

type YamlFirestoreConfig struct {
	AccountsCollection string `yaml:"accounts_collection"`
	TokensCollection   string `yaml:"tokens_collection"`
	ThreadsCollection  string `yaml:"threads_collection"`
}

// YamlConfig defines the structure for unmarshaling the embedded
// config.yaml file.
type YamlConfig struct {
	ProjectID             string                   `yaml:"project_id"`
	RunMode               string                   `yaml:"run_mode"`
	APIPort               string                   `yaml:"api_port"`
	WebSocketPort         string                   `yaml:"websocket_port"`
	AllowedOrigins        []string                 `yaml:"allowed_origins"`
	PresenceMirror        YamlPresenceMirrorConfig `yaml:"presence_mirror"`
	Firestore             YamlFirestoreConfig      `yaml:"firestore"`
	IngressTopicID        string                   `yaml:"ingress_topic_id"`
	IngressSubscriptionID string                   `yaml:"ingress_subscription_id"`
	IngressTopicDLQID     string                   `yaml:"ingress_topic_dlq_id"`
	PushTopicID           string                   `yaml:"push_topic_id"`
	NumPipelineWorkers    int                      `yaml:"num_pipeline_workers"`
	PushSendTimeoutMS     int                      `yaml:"push_send_timeout_ms"`
}

const (
	defaultNumPipelineWorkers = 4
	defaultPushSendTimeout    = 5 * time.Second
	defaultPresenceMirrorTTL  = 24 * time.Hour
)

// NewConfigFromYaml converts the raw unmarshaled YamlConfig into a
// validated AppConfig, applying defaults for optional tuning knobs.
func NewConfigFromYaml(yamlCfg *YamlConfig) (*AppConfig, error) {
	if yamlCfg.APIPort == "" {
		return nil, fmt.Errorf("api_port is required")
	}
	if yamlCfg.WebSocketPort == "" {
		return nil, fmt.Errorf("websocket_port is required")
	}

	appCfg := &AppConfig{
		ProjectID:      yamlCfg.ProjectID,
		RunMode:        yamlCfg.RunMode,
		APIPort:        yamlCfg.APIPort,
		WebSocketPort:  yamlCfg.WebSocketPort,
		AllowedOrigins: yamlCfg.AllowedOrigins,
		PresenceMirror: PresenceMirrorConfig{
			Type:  yamlCfg.PresenceMirror.Type,
			Redis: RedisConfig(yamlCfg.PresenceMirror.Redis),
			TTL:   defaultPresenceMirrorTTL,
		},
		Firestore: FirestoreConfig{
			AccountsCollection: yamlCfg.Firestore.AccountsCollection,
			TokensCollection:   yamlCfg.Firestore.TokensCollection,
			ThreadsCollection:  yamlCfg.Firestore.ThreadsCollection,
		},
		IngressTopicID:        yamlCfg.IngressTopicID,
		IngressSubscriptionID: yamlCfg.IngressSubscriptionID,
		IngressTopicDLQID:     yamlCfg.IngressTopicDLQID,
		PushTopicID:           yamlCfg.PushTopicID,
		NumPipelineWorkers:    yamlCfg.NumPipelineWorkers,
		PushSendTimeout:       defaultPushSendTimeout,
	}

	if yamlCfg.PresenceMirror.TTLSeconds > 0 {
		appCfg.PresenceMirror.TTL = time.Duration(yamlCfg.PresenceMirror.TTLSeconds) * time.Second
	}
	if appCfg.NumPipelineWorkers <= 0 {
		appCfg.NumPipelineWorkers = defaultNumPipelineWorkers
	}
	if yamlCfg.PushSendTimeoutMS > 0 {
		appCfg.PushSendTimeout = time.Duration(yamlCfg.PushSendTimeoutMS) * time.Millisecond
	}

	return appCfg, nil
}
