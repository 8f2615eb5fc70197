package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the verified-messages server
const (
	EnvVMPort            = "VM_PORT"
	EnvVMNetwork         = "VM_NETWORK"
	EnvVMPersistenceType = "VM_PERSISTENCE_TYPE"
	EnvVMDataPath        = "VM_DATA_PATH"
	EnvVMRedisAddress    = "VM_REDIS_ADDRESS"
	EnvVMRedisPassword   = "VM_REDIS_PASSWORD"
	EnvVMRedisDB         = "VM_REDIS_DB"
	EnvVMRedisKeyPrefix  = "VM_REDIS_KEY_PREFIX"
	EnvVMSQLDriver       = "VM_SQL_DRIVER"
	EnvVMSQLDSN          = "VM_SQL_DSN"
	EnvVMPostRateLimit   = "VM_POST_RATE_LIMIT"
	EnvVMPostBurst       = "VM_POST_BURST"
	EnvVMVerbose         = "VM_VERBOSE"
)

// Network selects the address version used when deriving a signer identity
// from a recovered public key.
type Network string

func (n Network) String() string {
	return string(n)
}

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Single-sig (p2pkh) address versions.
const (
	AddressVersionMainnetSingleSig byte = 22
	AddressVersionTestnetSingleSig byte = 26
)

var networkToAddressVersion = map[Network]byte{
	NetworkMainnet: AddressVersionMainnetSingleSig,
	NetworkTestnet: AddressVersionTestnetSingleSig,
}

// AddressVersion returns the single-sig address version byte for the network.
func (n Network) AddressVersion() (byte, error) {
	v, ok := networkToAddressVersion[n]
	if !ok {
		return 0, fmt.Errorf("unsupported network: %q", string(n))
	}
	return v, nil
}

// ParseNetwork parses a network name, case-insensitively.
func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := networkToAddressVersion[n]; !ok {
		return "", fmt.Errorf("unsupported network %q. Supported: %s", s, GetSupportedNetworksString())
	}
	return n, nil
}

// GetSupportedNetworksString returns supported networks for CLI help
func GetSupportedNetworksString() string {
	return fmt.Sprintf("%s, %s", NetworkMainnet, NetworkTestnet)
}

// PersistenceType selects the registry storage backend.
type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
	PersistenceTypeSQL    PersistenceType = "sql"
)

// SQLDriver selects the gorm dialector used by the sql backend.
type SQLDriver string

func (d SQLDriver) String() string {
	return string(d)
}

const (
	SQLDriverSqlite   SQLDriver = "sqlite"
	SQLDriverPostgres SQLDriver = "postgres"
)

// RedisSettings configures the redis backend.
type RedisSettings struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// SQLSettings configures the sql backend.
type SQLSettings struct {
	Driver SQLDriver `json:"driver"`
	DSN    string    `json:"dsn"`
}

// PersistenceConfig selects and configures a registry backend.
type PersistenceConfig struct {
	Type     PersistenceType `json:"type"`
	DataPath string          `json:"data_path"` // badger only
	Redis    RedisSettings   `json:"redis"`
	SQL      SQLSettings     `json:"sql"`
}

// Validate validates the persistence configuration
func (p *PersistenceConfig) Validate() error {
	return p.validate(field.NewPath("persistence")).ToAggregate()
}

func (p *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch p.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if p.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if p.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("redis", "address"), "address is required for redis persistence"))
		}
		if p.Redis.DB < 0 || p.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redis", "db"), p.Redis.DB, "db must be between 0-15"))
		}
	case PersistenceTypeSQL:
		switch p.SQL.Driver {
		case SQLDriverSqlite, SQLDriverPostgres:
		default:
			allErrors = append(allErrors, field.NotSupported(path.Child("sql", "driver"), p.SQL.Driver,
				[]string{SQLDriverSqlite.String(), SQLDriverPostgres.String()}))
		}
		if p.SQL.DSN == "" {
			allErrors = append(allErrors, field.Required(path.Child("sql", "dsn"), "dsn is required for sql persistence"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), p.Type, []string{
			PersistenceTypeMemory.String(),
			PersistenceTypeBadger.String(),
			PersistenceTypeRedis.String(),
			PersistenceTypeSQL.String(),
		}))
	}
	return allErrors
}

// ServerConfig represents the complete configuration for a verified-messages server
type ServerConfig struct {
	Port    int     `json:"port"`
	Network Network `json:"network"`

	Persistence PersistenceConfig `json:"persistence"`

	// PostRateLimit is the sustained post-message rate per second; 0 disables limiting.
	PostRateLimit float64 `json:"post_rate_limit"`
	PostBurst     int     `json:"post_burst"`

	Debug   bool `json:"debug"`
	Verbose bool `json:"verbose"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "port must be between 1-65535"))
	}

	if _, err := c.Network.AddressVersion(); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("network"), c.Network,
			[]string{NetworkMainnet.String(), NetworkTestnet.String()}))
	}

	if c.PostRateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("postRateLimit"), c.PostRateLimit, "must not be negative"))
	}
	if c.PostRateLimit > 0 && c.PostBurst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("postBurst"), c.PostBurst, "must be at least 1 when rate limiting is enabled"))
	}

	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
