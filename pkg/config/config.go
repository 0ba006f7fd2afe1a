package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/merkle-verifier-go/pkg/merkle"
)

// Environment variable names for verifier server configuration
const (
	EnvMerklePort             = "MERKLE_PORT"
	EnvMerkleHashAlgorithm    = "MERKLE_HASH_ALGORITHM"
	EnvMerklePersistenceType  = "MERKLE_PERSISTENCE_TYPE"
	EnvMerkleDataPath         = "MERKLE_DATA_PATH"
	EnvMerkleRedisAddress     = "MERKLE_REDIS_ADDRESS"
	EnvMerkleRedisPassword    = "MERKLE_REDIS_PASSWORD"
	EnvMerkleRedisDB          = "MERKLE_REDIS_DB"
	EnvMerkleRedisKeyPrefix   = "MERKLE_REDIS_KEY_PREFIX"
	EnvMerkleRateLimit        = "MERKLE_RATE_LIMIT"
	EnvMerkleRateBurst        = "MERKLE_RATE_BURST"
	EnvMerkleMaxProofElements = "MERKLE_MAX_PROOF_ELEMENTS"
	EnvMerkleMaxConcurrency   = "MERKLE_MAX_CONCURRENCY"
	EnvMerkleServerURL        = "MERKLE_SERVER_URL"
	EnvMerkleVerbose          = "MERKLE_VERBOSE"
)

type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

// Defaults for server configuration
const (
	DefaultPort             = 8080
	DefaultRateLimit        = 100.0 // requests per second
	DefaultRateBurst        = 200
	DefaultMaxProofElements = 1 << 16
	DefaultDataPath         = "./data/merkle-verifier"
)

// GetSupportedPersistenceTypes returns all supported persistence backends
func GetSupportedPersistenceTypes() []PersistenceType {
	return []PersistenceType{PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis}
}

// GetSupportedPersistenceTypesString returns supported backends as a string for CLI help
func GetSupportedPersistenceTypesString() string {
	names := make([]string, 0, 3)
	for _, p := range GetSupportedPersistenceTypes() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}

// RedisConfig holds the configuration for the redis root registry
type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// Validate validates the redis configuration
func (rc *RedisConfig) Validate() field.ErrorList {
	var allErrors field.ErrorList
	path := field.NewPath("redis")
	if rc.Address == "" {
		allErrors = append(allErrors, field.Required(path.Child("address"), "address is required for redis persistence"))
	}
	if rc.DB < 0 || rc.DB > 15 {
		allErrors = append(allErrors, field.Invalid(path.Child("db"), rc.DB, "must be between 0-15"))
	}
	return allErrors
}

// PersistenceConfig selects and configures the root registry backend
type PersistenceConfig struct {
	Type     PersistenceType `json:"type" yaml:"type"`
	DataPath string          `json:"dataPath" yaml:"dataPath"` // badger only
	Redis    *RedisConfig    `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// VerifierServerConfig represents the complete configuration for a verifier server
type VerifierServerConfig struct {
	Port int `json:"port"`

	// HashAlgorithm is the default pair hasher for requests that don't name a registered root
	HashAlgorithm string `json:"hash_algorithm"`

	Persistence PersistenceConfig `json:"persistence"`

	// Request limits
	RateLimit        float64 `json:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst        int     `json:"rate_burst"`
	MaxProofElements int     `json:"max_proof_elements"` // leaves + proof hashes + flags per request
	MaxConcurrency   int     `json:"max_concurrency"`

	// Operational settings
	Debug   bool `json:"debug"`
	Verbose bool `json:"verbose"`
}

// Validate validates the verifier server configuration, filling in defaults
// for fields left empty.
func (c *VerifierServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be between 1-65535"))
	}

	if c.HashAlgorithm == "" {
		c.HashAlgorithm = merkle.AlgorithmKeccak256
	}
	if _, err := merkle.HasherForAlgorithm(c.HashAlgorithm); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("hashAlgorithm"), c.HashAlgorithm, merkle.SupportedAlgorithms()))
	}

	if c.RateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit"), c.RateLimit, "must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateBurst"), c.RateBurst, "must be at least 1 when rate limiting is enabled"))
	}

	if c.MaxProofElements == 0 {
		c.MaxProofElements = DefaultMaxProofElements
	}
	if c.MaxProofElements < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxProofElements"), c.MaxProofElements, "must be positive"))
	}
	if c.MaxConcurrency < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxConcurrency"), c.MaxConcurrency, "must not be negative"))
	}

	persistencePath := field.NewPath("persistence")
	switch c.Persistence.Type {
	case "":
		c.Persistence.Type = PersistenceTypeMemory
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if c.Persistence.DataPath == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if c.Persistence.Redis == nil {
			allErrors = append(allErrors, field.Required(persistencePath.Child("redis"), "redis config is required for redis persistence"))
		} else {
			allErrors = append(allErrors, c.Persistence.Redis.Validate()...)
		}
	default:
		supported := make([]string, 0, 3)
		for _, p := range GetSupportedPersistenceTypes() {
			supported = append(supported, p.String())
		}
		allErrors = append(allErrors, field.NotSupported(persistencePath.Child("type"), c.Persistence.Type, supported))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// Address returns the listen address for the server
func (c *VerifierServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}
