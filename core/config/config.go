package config

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/forem/mediaurl/core/authtoken"
	"github.com/forem/mediaurl/core/bpcache"
	"github.com/forem/mediaurl/core/delivery"
	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/sign"
	"github.com/forem/mediaurl/core/transformation"
)

const DefaultPath = "mediaurl.yaml"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	CloudName          string           `yaml:"cloud_name"`
	APIKey             string           `yaml:"api_key"`
	APISecret          string           `yaml:"api_secret"` // #nosec G117 -- config key name documents expected secret input.
	APIPrefix          string           `yaml:"api_prefix"`
	Secure             *bool            `yaml:"secure"`
	SecureDistribution string           `yaml:"secure_distribution"`
	PrivateCDN         bool             `yaml:"private_cdn"`
	CDNSubdomain       bool             `yaml:"cdn_subdomain"`
	SecureCDNSubdomain *bool            `yaml:"secure_cdn_subdomain"`
	CName              string           `yaml:"cname"`
	Shorten            bool             `yaml:"shorten"`
	UseRootPath        bool             `yaml:"use_root_path"`
	ForceVersion       *bool            `yaml:"force_version"`
	SignURL            bool             `yaml:"sign_url"`
	SignVersion        bool             `yaml:"sign_version"`
	LongURLSignature   bool             `yaml:"long_url_signature"`
	SignatureAlgorithm string           `yaml:"signature_algorithm"`
	AuthToken          authtoken.Spec   `yaml:"auth_token"`
	ResponsiveWidth    any              `yaml:"responsive_width_transformation"`
	Cache              bpcache.Settings `yaml:"cache"`
	MetricsTextfile    string           `yaml:"metrics_textfile"`
}

func Load(path string, allowMissing bool) (Config, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return Config{}, invalid("config_path_required", "config path is required")
	}

	// #nosec G304 -- config path is explicit local user input.
	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return Config{}, nil
		}
		return Config{}, invalid("config_unreadable", "read config: %v", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return Config{}, nil
	}

	var configuration Config
	if err := yaml.Unmarshal(content, &configuration); err != nil {
		return Config{}, invalid("config_unparseable", "parse config: %v", err)
	}
	configuration.normalize()
	return configuration, nil
}

func (configuration *Config) normalize() {
	configuration.CloudName = strings.TrimSpace(configuration.CloudName)
	configuration.APIKey = strings.TrimSpace(configuration.APIKey)
	configuration.APISecret = strings.TrimSpace(configuration.APISecret)
	configuration.APIPrefix = strings.TrimRight(strings.TrimSpace(configuration.APIPrefix), "/")
	configuration.SecureDistribution = strings.TrimSpace(configuration.SecureDistribution)
	configuration.CName = strings.TrimSpace(configuration.CName)
	configuration.SignatureAlgorithm = strings.ToLower(strings.TrimSpace(configuration.SignatureAlgorithm))
	configuration.AuthToken.Key = strings.TrimSpace(configuration.AuthToken.Key)
	configuration.AuthToken.TokenName = strings.TrimSpace(configuration.AuthToken.TokenName)
	configuration.Cache.Backend = strings.ToLower(strings.TrimSpace(configuration.Cache.Backend))
	configuration.Cache.Dir = strings.TrimSpace(configuration.Cache.Dir)
	configuration.Cache.RedisURL = strings.TrimSpace(configuration.Cache.RedisURL)
	configuration.MetricsTextfile = strings.TrimSpace(configuration.MetricsTextfile)
}

// Delivery converts the file and environment settings into the immutable
// delivery configuration.
func (configuration Config) Delivery() (delivery.Config, error) {
	algorithm, err := sign.ParseAlgorithm(configuration.SignatureAlgorithm)
	if err != nil {
		return delivery.Config{}, err
	}
	responsive, err := configuration.responsiveWidth()
	if err != nil {
		return delivery.Config{}, err
	}

	result := delivery.DefaultConfig(configuration.CloudName)
	result.APIKey = configuration.APIKey
	result.APISecret = configuration.APISecret
	result.APIPrefix = configuration.APIPrefix
	result.SecureDistribution = configuration.SecureDistribution
	result.PrivateCDN = configuration.PrivateCDN
	result.CDNSubdomain = configuration.CDNSubdomain
	result.SecureCDNSubdomain = configuration.SecureCDNSubdomain
	result.CName = configuration.CName
	result.Shorten = configuration.Shorten
	result.UseRootPath = configuration.UseRootPath
	result.SignURL = configuration.SignURL
	result.SignVersion = configuration.SignVersion
	result.LongURLSignature = configuration.LongURLSignature
	result.SignatureAlgorithm = algorithm
	result.ResponsiveWidth = responsive
	if configuration.Secure != nil {
		result.Secure = *configuration.Secure
	}
	if configuration.ForceVersion != nil {
		result.ForceVersion = *configuration.ForceVersion
	}
	if token := configuration.AuthTokenSpec(); token != nil {
		result.AuthToken = token
	}
	return result, nil
}

// Signing returns the API request signing context.
func (configuration Config) Signing() (sign.Context, error) {
	algorithm, err := sign.ParseAlgorithm(configuration.SignatureAlgorithm)
	if err != nil {
		return sign.Context{}, err
	}
	return sign.Context{Key: configuration.APIKey, Secret: configuration.APISecret, Algorithm: algorithm}, nil
}

// AuthTokenSpec returns the default token spec, or nil when none is set.
func (configuration Config) AuthTokenSpec() *authtoken.Spec {
	if configuration.AuthToken.IsZero() {
		return nil
	}
	spec := configuration.AuthToken
	return &spec
}

func (configuration Config) responsiveWidth() ([]transformation.Options, error) {
	if configuration.ResponsiveWidth == nil {
		return nil, nil
	}
	raw, err := json.Marshal(configuration.ResponsiveWidth)
	if err != nil {
		return nil, invalid("invalid_responsive_width", "encode responsive_width_transformation: %v", err)
	}
	chain, err := transformation.ParseChain(raw)
	if err != nil {
		return nil, invalid("invalid_responsive_width", "responsive_width_transformation: %v", err)
	}
	return chain, nil
}

func invalid(code, format string, args ...any) error {
	return coreerrors.Configuration(ErrInvalidConfig, code, format, args...)
}
