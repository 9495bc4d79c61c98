package models

import "time"

// -----------------------------------------------------------------------------

// MConfig is the on-disk (YAML) shape of the streamer configuration.
type MConfig struct {
	Name        string           `yaml:"name"`
	LogLevel    string           `yaml:"log_level"`
	Host        string           `yaml:"host"`
	Port        int              `yaml:"port"`
	GRPC_Host   string           `yaml:"grpc_host"`
	GRPC_Port   int              `yaml:"grpc_port"`
	Credentials MCredentials     `yaml:"credentials"`
	RestAPI     MRestAPIConfig   `yaml:"rest_api"`
	Streaming   MStreamingConfig `yaml:"streaming"`
	Publisher   MPublisherConfig `yaml:"publisher"`
	Storage     MStorageConfig   `yaml:"storage"`
}

// -----------------------------------------------------------------------------

// MCredentials holds the brokerage API credentials.
type MCredentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
}

// -----------------------------------------------------------------------------

// MRestAPIConfig configures the request/response channel used by the handshake.
type MRestAPIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout"`
}

// -----------------------------------------------------------------------------

// MStreamingConfig configures the persistent stream connection and the daemon loop.
type MStreamingConfig struct {
	Kind                     MSessionKind        `yaml:"kind"`
	HTTPBaseURL              string              `yaml:"http_base_url"`
	WSBaseURL                string              `yaml:"ws_base_url"`
	EventsPath               string              `yaml:"events_path"`
	ReconnectIntervalSeconds int                 `yaml:"reconnect_interval"`
	HandshakeTimeoutSeconds  int                 `yaml:"handshake_timeout"`
	SessionTTL               time.Duration       `yaml:"session_ttl"`
	UseHandshakeURL          bool                `yaml:"use_handshake_url"`
	Market                   MMarketStreamConfig `yaml:"market"`
}

// -----------------------------------------------------------------------------

// MMarketStreamConfig describes the subscription sent on market streams.
// Nil pointers are omitted from the wire message.
type MMarketStreamConfig struct {
	Symbols         []string `yaml:"symbols"`
	Filters         []string `yaml:"filters"`
	Linebreak       *bool    `yaml:"linebreak"`
	ValidOnly       *bool    `yaml:"valid_only"`
	AdvancedDetails *bool    `yaml:"advanced_details"`
}

// -----------------------------------------------------------------------------

// MPublisherConfig selects where received stream events are forwarded.
type MPublisherConfig struct {
	Type     string       `yaml:"type"`     // nats, kafka or none
	Encoding string       `yaml:"encoding"` // json or gob
	NATS     MNATSConfig  `yaml:"nats"`
	Kafka    MKafkaConfig `yaml:"kafka"`
}

// MNATSConfig holds the NATS connection options.
type MNATSConfig struct {
	Servers        []string          `yaml:"servers"`
	ClientID       string            `yaml:"client_id"`
	SubjectPrefix  string            `yaml:"subject_prefix"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout"`
	ReconnectWait  time.Duration     `yaml:"reconnect_wait"`
	MaxReconnects  int               `yaml:"max_reconnects"`
	FlushTimeout   time.Duration     `yaml:"flush_timeout"`
	JetStream      *MJetStreamConfig `yaml:"jetstream"`
}

// MJetStreamConfig enables persistent publishing on the NATS side.
type MJetStreamConfig struct {
	Enabled    bool          `yaml:"enabled"`
	StreamName string        `yaml:"stream_name"`
	Subjects   []string      `yaml:"subjects"`
	Replicas   int           `yaml:"replicas"`
	MaxAge     time.Duration `yaml:"max_age"`
	MaxMsgs    int64         `yaml:"max_msgs"`
	MaxBytes   int64         `yaml:"max_bytes"`
	MaxMsgSize int           `yaml:"max_msg_size"`
}

// MKafkaConfig holds the Kafka writer options.
type MKafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// -----------------------------------------------------------------------------

// MStorageConfig selects the session history store.
type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres or empty
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}
