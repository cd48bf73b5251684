package delivery

import (
	"time"

	"github.com/forem/mediaurl/core/authtoken"
	"github.com/forem/mediaurl/core/sign"
	"github.com/forem/mediaurl/core/transformation"
)

const (
	SharedCDN    = "res.cloudinary.com"
	oldSharedCDN = "cloudinary-a.akamaihd.net"

	DefaultAPIPrefix = "https://api.cloudinary.com"
)

// Config is the immutable delivery configuration passed into every build.
// Callers override per request by copying the value.
type Config struct {
	CloudName          string
	APIKey             string
	APISecret          string
	APIPrefix          string
	SecureDistribution string
	PrivateCDN         bool
	CDNSubdomain       bool
	SecureCDNSubdomain *bool
	CName              string
	Secure             bool
	Shorten            bool
	UseRootPath        bool
	ForceVersion       bool
	SignURL            bool
	SignVersion        bool
	LongURLSignature   bool
	SignatureAlgorithm sign.Algorithm
	AuthToken          *authtoken.Spec
	ResponsiveWidth    []transformation.Options
	Clock              func() time.Time
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig(cloudName string) Config {
	return Config{
		CloudName:          cloudName,
		Secure:             true,
		ForceVersion:       true,
		SignatureAlgorithm: sign.AlgSHA1,
	}
}

// Signing returns the request signing context for the configured credentials.
func (c Config) Signing() sign.Context {
	return sign.Context{Key: c.APIKey, Secret: c.APISecret, Algorithm: c.SignatureAlgorithm}
}

func (c Config) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}

func (c Config) apiPrefix() string {
	if c.APIPrefix != "" {
		return c.APIPrefix
	}
	return DefaultAPIPrefix
}
