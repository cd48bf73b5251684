package config

import (
	"errors"
	"io/fs"
	"net/url"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvURL          = "MEDIAURL_URL"
	EnvCloudName    = "MEDIAURL_CLOUD_NAME"
	EnvAPIKey       = "MEDIAURL_API_KEY"
	EnvAPISecret    = "MEDIAURL_API_SECRET"
	EnvAuthTokenKey = "MEDIAURL_AUTH_TOKEN_KEY"

	DefaultEnvFile = ".env"
)

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return invalid("env_file_unreadable", "load env file %s: %v", path, err)
	}
	return nil
}

// ApplyEnv overlays MEDIAURL_URL and then the discrete variables.
func (configuration *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if raw, ok := lookup(EnvURL); ok && strings.TrimSpace(raw) != "" {
		if err := configuration.applyURL(strings.TrimSpace(raw)); err != nil {
			return err
		}
	}
	if value, ok := lookup(EnvCloudName); ok && value != "" {
		configuration.CloudName = value
	}
	if value, ok := lookup(EnvAPIKey); ok && value != "" {
		configuration.APIKey = value
	}
	if value, ok := lookup(EnvAPISecret); ok && value != "" {
		configuration.APISecret = value
	}
	if value, ok := lookup(EnvAuthTokenKey); ok && value != "" {
		configuration.AuthToken.Key = value
	}
	configuration.normalize()
	return nil
}

// applyURL reads mediaurl://<api_key>:<api_secret>@<cloud_name>?<option>=<value>.
func (configuration *Config) applyURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return invalid("invalid_env_url", "parse %s: %v", EnvURL, err)
	}
	if parsed.Scheme != "mediaurl" && parsed.Scheme != "cloudinary" {
		return invalid("invalid_env_url", "%s must use the mediaurl:// scheme, got %q", EnvURL, parsed.Scheme)
	}
	if parsed.Host != "" {
		configuration.CloudName = parsed.Host
	}
	if parsed.User != nil {
		configuration.APIKey = parsed.User.Username()
		if secret, ok := parsed.User.Password(); ok {
			configuration.APISecret = secret
		}
	}
	if strings.Trim(parsed.Path, "/") != "" {
		// A path names a development cloud served from /res/<path>.
		configuration.CloudName = "/" + strings.Trim(parsed.Path, "/")
	}

	for key, values := range parsed.Query() {
		if len(values) == 0 {
			continue
		}
		if err := configuration.setOption(key, values[len(values)-1]); err != nil {
			return err
		}
	}
	return nil
}

func (configuration *Config) setOption(key, value string) error {
	flag := func(target *bool) error {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return invalid("invalid_env_url", "%s option %s: %v", EnvURL, key, err)
		}
		*target = parsed
		return nil
	}
	flagPtr := func(target **bool) error {
		var parsed bool
		if err := flag(&parsed); err != nil {
			return err
		}
		*target = &parsed
		return nil
	}

	switch key {
	case "secure":
		return flagPtr(&configuration.Secure)
	case "force_version":
		return flagPtr(&configuration.ForceVersion)
	case "secure_cdn_subdomain":
		return flagPtr(&configuration.SecureCDNSubdomain)
	case "private_cdn":
		return flag(&configuration.PrivateCDN)
	case "cdn_subdomain":
		return flag(&configuration.CDNSubdomain)
	case "shorten":
		return flag(&configuration.Shorten)
	case "use_root_path":
		return flag(&configuration.UseRootPath)
	case "sign_url":
		return flag(&configuration.SignURL)
	case "sign_version":
		return flag(&configuration.SignVersion)
	case "long_url_signature":
		return flag(&configuration.LongURLSignature)
	case "secure_distribution":
		configuration.SecureDistribution = value
	case "cname":
		configuration.CName = value
	case "api_prefix", "upload_prefix":
		configuration.APIPrefix = value
	case "signature_algorithm":
		configuration.SignatureAlgorithm = value
	case "auth_token_key":
		configuration.AuthToken.Key = value
	}
	// Unknown options are left for newer clients.
	return nil
}
