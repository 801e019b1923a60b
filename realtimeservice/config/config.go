// Package config defines the realtime service configuration: the raw YAML
// shape and the validated AppConfig used throughout the application.
package config

import "time"

// AppConfig is the canonical, validated configuration object.
type AppConfig struct {
	ProjectID     string
	RunMode       string
	APIPort       string
	WebSocketPort string

	AllowedOrigins []string

	// AuthSecret is the HS256 key shared with the identity issuer. It is
	// injected from the environment, never from the YAML file.
	AuthSecret string

	PresenceMirror PresenceMirrorConfig
	Firestore      FirestoreConfig

	IngressTopicID        string
	IngressSubscriptionID string
	IngressTopicDLQID     string
	PushTopicID           string

	NumPipelineWorkers int
	PushSendTimeout    time.Duration
}

// PresenceMirrorConfig selects the optional external presence reflection.
type PresenceMirrorConfig struct {
	Type  string // "redis" or "none"
	Redis RedisConfig
	TTL   time.Duration
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr string
}

// FirestoreConfig names the collections this service reads and writes.
type FirestoreConfig struct {
	AccountsCollection string
	TokensCollection   string
	ThreadsCollection  string
}
